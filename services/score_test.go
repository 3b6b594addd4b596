package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"rentmatch/models"
)

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func seekerProfile() *models.SearchProfile {
	return &models.SearchProfile{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		BudgetMin:    floatPtr(400),
		BudgetMax:    floatPtr(800),
		RoommatePref: models.RoommatePrefNo,
	}
}

func activeProperty(price float64) *models.Property {
	return &models.Property{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Price:     price,
		Bedrooms:  2,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
}

func TestScorePropertyPriceWithinBudget(t *testing.T) {
	profile := seekerProfile()
	prop := activeProperty(600)

	_, breakdown := ScoreProperty(profile, prop, time.Now())
	if breakdown.PriceScore != 100 {
		t.Fatalf("expected price score 100 for in-budget property, got %v", breakdown.PriceScore)
	}
}

func TestScorePropertyPriceOvershoot(t *testing.T) {
	profile := seekerProfile()
	prop := activeProperty(1000)

	// (1000-800)/800 = 25% overshoot => 75
	_, breakdown := ScoreProperty(profile, prop, time.Now())
	if breakdown.PriceScore != 75 {
		t.Fatalf("expected price score 75, got %v", breakdown.PriceScore)
	}
}

func TestScorePropertyRoommateSplitImprovesPrice(t *testing.T) {
	profile := seekerProfile()
	profile.RoommatePref = models.RoommatePrefLooking

	prop := activeProperty(1400)
	prop.AllowsRoommates = true
	prop.MaxOccupancy = 2

	// 1400/2 = 700 per person, inside [400,800]
	_, breakdown := ScoreProperty(profile, prop, time.Now())
	if breakdown.PriceScore != 100 {
		t.Fatalf("expected per-person price to lift score to 100, got %v", breakdown.PriceScore)
	}
}

func TestScorePropertyMissingFieldsAreNeutral(t *testing.T) {
	profile := &models.SearchProfile{ID: uuid.New(), UserID: uuid.New()}
	prop := &models.Property{ID: uuid.New(), OwnerID: uuid.New(), Price: 500, Bedrooms: 1}

	score, breakdown := ScoreProperty(profile, prop, time.Now())

	if score < 0 || score > 100 {
		t.Fatalf("score out of bounds: %v", score)
	}
	if breakdown.LocationScore != 50 {
		t.Fatalf("expected neutral location score 50, got %v", breakdown.LocationScore)
	}
	if breakdown.AmenitiesScore != 100 {
		t.Fatalf("expected empty amenity request to be fully satisfied, got %v", breakdown.AmenitiesScore)
	}
	if breakdown.ReputationScore != 80 {
		t.Fatalf("expected default reputation 80 without reviews, got %v", breakdown.ReputationScore)
	}
}

func TestScorePropertyDistancePenalty(t *testing.T) {
	profile := seekerProfile()
	profile.Lat = floatPtr(40.4168)
	profile.Lng = floatPtr(-3.7038)

	prop := activeProperty(600)
	prop.Lat = floatPtr(40.4168)
	prop.Lng = floatPtr(-3.7038)

	_, breakdown := ScoreProperty(profile, prop, time.Now())
	if breakdown.LocationScore != 100 {
		t.Fatalf("expected location score 100 at zero distance, got %v", breakdown.LocationScore)
	}

	// ~5km north
	prop.Lat = floatPtr(40.4618)
	_, breakdown = ScoreProperty(profile, prop, time.Now())
	if breakdown.LocationScore <= 0 || breakdown.LocationScore >= 100 {
		t.Fatalf("expected partial location score at 5km, got %v", breakdown.LocationScore)
	}
}

func TestScorePropertyFreshnessDecay(t *testing.T) {
	profile := seekerProfile()
	prop := activeProperty(600)
	prop.CreatedAt = time.Now().AddDate(0, 0, -60)

	_, breakdown := ScoreProperty(profile, prop, time.Now())
	if breakdown.FreshnessScore != 0 {
		t.Fatalf("expected freshness 0 after 60 days, got %v", breakdown.FreshnessScore)
	}
}

func TestScorePropertyFamilyFit(t *testing.T) {
	profile := seekerProfile()
	profile.ChildrenCount = 2

	oneBedroom := activeProperty(600)
	oneBedroom.Bedrooms = 1
	_, breakdown := ScoreProperty(profile, oneBedroom, time.Now())
	if breakdown.FamilyScore != 60 {
		t.Fatalf("expected family score 60 for one bedroom with children, got %v", breakdown.FamilyScore)
	}

	twoBedroom := activeProperty(600)
	twoBedroom.Bedrooms = 2
	_, breakdown = ScoreProperty(profile, twoBedroom, time.Now())
	if breakdown.FamilyScore != 100 {
		t.Fatalf("expected family score 100 for two bedrooms, got %v", breakdown.FamilyScore)
	}
}

func TestScorePropertyBounds(t *testing.T) {
	profiles := []*models.SearchProfile{
		{},
		seekerProfile(),
		{BudgetMin: floatPtr(0), BudgetMax: floatPtr(0), Amenities: []string{"pool", "gym"}},
	}
	props := []*models.Property{
		{},
		activeProperty(0),
		activeProperty(1e9),
	}

	for _, profile := range profiles {
		for _, prop := range props {
			score, _ := ScoreProperty(profile, prop, time.Now())
			if score < 0 || score > 100 {
				t.Fatalf("score out of bounds: %v", score)
			}
		}
	}
}

func TestScoreRoommateOverlappingBudgets(t *testing.T) {
	p1 := &models.SearchProfile{BudgetMin: floatPtr(400), BudgetMax: floatPtr(800)}
	p2 := &models.SearchProfile{BudgetMin: floatPtr(600), BudgetMax: floatPtr(900)}

	_, breakdown := ScoreRoommate(p1, p2)
	if breakdown.BudgetScore != 100 {
		t.Fatalf("expected budget score 100 for overlapping intervals, got %v", breakdown.BudgetScore)
	}
}

func TestScoreRoommateDisjointBudgets(t *testing.T) {
	p1 := &models.SearchProfile{BudgetMin: floatPtr(100), BudgetMax: floatPtr(200)}
	p2 := &models.SearchProfile{BudgetMin: floatPtr(500), BudgetMax: floatPtr(600)}

	_, breakdown := ScoreRoommate(p1, p2)
	if breakdown.BudgetScore >= 80 {
		t.Fatalf("expected disjoint budgets to score below 80, got %v", breakdown.BudgetScore)
	}
	if breakdown.BudgetScore < 0 {
		t.Fatalf("budget score below floor: %v", breakdown.BudgetScore)
	}
}

func TestScoreRoommatePreferencePenalties(t *testing.T) {
	p1 := &models.SearchProfile{
		RoommatePrefs: models.RoommatePreferences{
			Gender:   "female",
			SmokerOK: boolPtr(false),
		},
	}
	p2 := &models.SearchProfile{
		RoommatePrefs: models.RoommatePreferences{Gender: "male"},
		Smoker:        true,
	}

	// 100 - 50 (gender) - 30 (smoker) = 20, averaged with full vibe overlap.
	_, breakdown := ScoreRoommate(p1, p2)
	if breakdown.PrefsScore != 60 {
		t.Fatalf("expected prefs score 60, got %v", breakdown.PrefsScore)
	}
}

func TestScoreRoommateZoneOverlap(t *testing.T) {
	shared := uuid.New()
	p1 := &models.SearchProfile{PreferredZones: []uuid.UUID{shared, uuid.New()}}
	p2 := &models.SearchProfile{PreferredZones: []uuid.UUID{shared}}

	_, breakdown := ScoreRoommate(p1, p2)
	if breakdown.ZoneScore != 50 {
		t.Fatalf("expected zone score 50 for half overlap, got %v", breakdown.ZoneScore)
	}
}

func TestScoreAgentCommission(t *testing.T) {
	profile := &models.SearchProfile{}
	agent := &models.User{IsAgent: true, AgentCommissionRate: floatPtr(2.0)}

	score, breakdown := ScoreAgent(profile, agent)
	if breakdown.CommissionScore != 80 {
		t.Fatalf("expected commission score 80 at 2%% commission, got %v", breakdown.CommissionScore)
	}
	// 50*0.4 + 80*0.4 + 50*0.2 = 62
	if score != 62 {
		t.Fatalf("expected total 62, got %v", score)
	}
}

func TestScoreAgentNonAgentGetsNoBase(t *testing.T) {
	profile := &models.SearchProfile{}
	notAgent := &models.User{IsAgent: false, AgentCommissionRate: floatPtr(0)}

	// 0*0.4 + 100*0.4 + 50*0.2 = 50
	score, _ := ScoreAgent(profile, notAgent)
	if score != 50 {
		t.Fatalf("expected total 50 for non-agent, got %v", score)
	}
}

func TestScoreAgentHighCommissionFloorsAtZero(t *testing.T) {
	profile := &models.SearchProfile{}
	agent := &models.User{IsAgent: true, AgentCommissionRate: floatPtr(15)}

	_, breakdown := ScoreAgent(profile, agent)
	if breakdown.CommissionScore != 0 {
		t.Fatalf("expected commission score floored at 0, got %v", breakdown.CommissionScore)
	}
}
