package models

import "testing"

func TestMatchStatusTerminal(t *testing.T) {
	if MatchStatusPending.Terminal() {
		t.Fatalf("pending must not be terminal")
	}
	if !MatchStatusAccepted.Terminal() || !MatchStatusRejected.Terminal() {
		t.Fatalf("accepted and rejected must be terminal")
	}
}

func TestWantsRoommate(t *testing.T) {
	cases := []struct {
		pref string
		want bool
	}{
		{RoommatePrefNo, false},
		{RoommatePrefLooking, true},
		{RoommatePrefOpen, true},
		{"", false},
	}
	for _, tc := range cases {
		p := SearchProfile{RoommatePref: tc.pref}
		if p.WantsRoommate() != tc.want {
			t.Fatalf("WantsRoommate(%q) = %v, want %v", tc.pref, !tc.want, tc.want)
		}
	}
}

func TestIncentiveTypeKnown(t *testing.T) {
	for _, known := range KnownIncentiveTypes {
		if !known.Known() {
			t.Fatalf("%s should be known", known)
		}
	}
	if IncentiveType("mystery").Known() {
		t.Fatalf("unexpected type must not be known")
	}
}
