package services

import (
	"math"
	"time"

	"github.com/google/uuid"
	"rentmatch/models"
)

// Axis weights for the composite property score.
var propertyWeights = map[string]float64{
	"location":   0.28,
	"price":      0.24,
	"amenities":  0.15,
	"roommate":   0.14,
	"reputation": 0.09,
	"freshness":  0.05,
	"family":     0.05,
}

var roommateWeights = map[string]float64{
	"zone":   0.4,
	"budget": 0.3,
	"prefs":  0.3,
}

const defaultCommissionRate = 2.0

// PropertyBreakdown carries the per-axis scores stored as match metadata.
type PropertyBreakdown struct {
	LocationScore   float64 `json:"location_score"`
	PriceScore      float64 `json:"price_score"`
	AmenitiesScore  float64 `json:"amenities_score"`
	RoommateScore   float64 `json:"roommate_score"`
	ReputationScore float64 `json:"reputation_score"`
	FreshnessScore  float64 `json:"freshness_score"`
	FamilyScore     float64 `json:"family_score"`
}

type RoommateBreakdown struct {
	ZoneScore   float64 `json:"zone_score"`
	BudgetScore float64 `json:"budget_score"`
	PrefsScore  float64 `json:"prefs_score"`
}

type AgentBreakdown struct {
	CommissionScore float64 `json:"commission_score"`
	ZonesOverlap    float64 `json:"zones_overlap"`
}

// ScoreProperty rates how well a property fits a seeker's profile, on a
// 0-100 scale. Axes with missing inputs fall back to neutral values so a
// sparse profile still produces comparable scores.
func ScoreProperty(profile *models.SearchProfile, prop *models.Property, now time.Time) (float64, PropertyBreakdown) {
	// Location: 10 points off per km of distance, neutral without coords.
	locationScore := 50.0
	if profile.Lat != nil && profile.Lng != nil && prop.Lat != nil && prop.Lng != nil {
		distanceKm := haversineKm(*profile.Lat, *profile.Lng, *prop.Lat, *prop.Lng)
		locationScore = math.Max(0, 100-distanceKm*10)
	}

	// Price: full marks inside the budget window, linear falloff above it.
	priceScore := 80.0
	if profile.BudgetMin != nil && profile.BudgetMax != nil {
		minB, maxB := *profile.BudgetMin, *profile.BudgetMax
		if minB <= prop.Price && prop.Price <= maxB {
			priceScore = 100
		} else {
			diff := math.Abs(prop.Price-maxB) / math.Max(maxB, 1)
			priceScore = math.Max(0, 100-diff*100)
		}
	}
	// Shared occupancy makes expensive listings affordable per head.
	if prop.AllowsRoommates && profile.WantsRoommate() && prop.MaxOccupancy > 0 && profile.BudgetMax != nil {
		perPerson := prop.Price / float64(prop.MaxOccupancy)
		if perPerson <= *profile.BudgetMax {
			priceScore = math.Max(priceScore, 100)
		} else {
			priceScore = math.Max(priceScore, 80)
		}
	}

	amenitiesScore := 100.0
	if len(profile.Amenities) > 0 {
		matching := intersectCount(profile.Amenities, prop.Amenities)
		amenitiesScore = float64(matching) / float64(len(profile.Amenities)) * 100
	}

	roommateScore := 50.0
	if prop.AllowsRoommates == profile.WantsRoommate() {
		roommateScore = 100
	}

	reputationScore := 80.0
	if prop.AvgRating != nil {
		reputationScore = *prop.AvgRating * 20
	}

	freshnessDays := 0.0
	if !prop.CreatedAt.IsZero() {
		freshnessDays = math.Floor(now.Sub(prop.CreatedAt).Hours() / 24)
	}
	freshnessScore := math.Max(0, 100-freshnessDays*2)

	// Households with children need at least two bedrooms.
	neededBedrooms := 1
	if profile.ChildrenCount >= 1 {
		neededBedrooms = 2
	}
	familyScore := 60.0
	if prop.Bedrooms >= neededBedrooms {
		familyScore = 100
	}

	breakdown := PropertyBreakdown{
		LocationScore:   round2(locationScore),
		PriceScore:      round2(priceScore),
		AmenitiesScore:  round2(amenitiesScore),
		RoommateScore:   round2(roommateScore),
		ReputationScore: round2(reputationScore),
		FreshnessScore:  round2(freshnessScore),
		FamilyScore:     round2(familyScore),
	}

	total := locationScore*propertyWeights["location"] +
		priceScore*propertyWeights["price"] +
		amenitiesScore*propertyWeights["amenities"] +
		roommateScore*propertyWeights["roommate"] +
		reputationScore*propertyWeights["reputation"] +
		freshnessScore*propertyWeights["freshness"] +
		familyScore*propertyWeights["family"]

	return round2(total), breakdown
}

// ScoreRoommate rates compatibility between two seekers from the first
// profile's perspective.
func ScoreRoommate(p1, p2 *models.SearchProfile) (float64, RoommateBreakdown) {
	zoneScore := 50.0
	if len(p1.PreferredZones) > 0 {
		shared := intersectZones(p1.PreferredZones, p2.PreferredZones)
		zoneScore = float64(shared) / float64(len(p1.PreferredZones)) * 100
	}

	budgetScore := 80.0
	if p1.BudgetMin != nil && p1.BudgetMax != nil && p2.BudgetMin != nil && p2.BudgetMax != nil {
		overlap := math.Min(*p1.BudgetMax, *p2.BudgetMax) - math.Max(*p1.BudgetMin, *p2.BudgetMin)
		if overlap > 0 {
			budgetScore = 100
		} else {
			gap := math.Abs(*p1.BudgetMax-*p2.BudgetMin) / math.Max(*p1.BudgetMax, 1)
			budgetScore = math.Max(0, 80-gap*100)
		}
	}

	prefsScore := 100.0
	if g := p1.RoommatePrefs.Gender; g != "" && g != "any" && g != p2.RoommatePrefs.Gender {
		prefsScore -= 50
	}
	if p1.RoommatePrefs.SmokerOK != nil && !*p1.RoommatePrefs.SmokerOK && p2.Smoker {
		prefsScore -= 30
	}
	vibesScore := 100.0
	if len(p1.Vibes) > 0 {
		shared := intersectCount(p1.Vibes, p2.Vibes)
		vibesScore = float64(shared) / float64(len(p1.Vibes)) * 100
	}
	prefsScore = (prefsScore + vibesScore) / 2

	breakdown := RoommateBreakdown{
		ZoneScore:   round2(zoneScore),
		BudgetScore: round2(budgetScore),
		PrefsScore:  round2(prefsScore),
	}

	total := zoneScore*roommateWeights["zone"] +
		budgetScore*roommateWeights["budget"] +
		prefsScore*roommateWeights["prefs"]

	return round2(total), breakdown
}

// ScoreAgent rates an agent for a seeker: 40% for being a verified agent,
// 40% for a low commission, 20% for zone coverage overlap.
func ScoreAgent(profile *models.SearchProfile, agent *models.User) (float64, AgentBreakdown) {
	base := 0.0
	if agent.IsAgent {
		base = 50
	}

	commission := defaultCommissionRate
	if agent.AgentCommissionRate != nil {
		commission = *agent.AgentCommissionRate
	}
	commissionScore := math.Max(0, 100-commission*10)

	zonesOverlap := 50.0
	if len(profile.PreferredZones) > 0 {
		shared := intersectZones(agent.ManagedZones, profile.PreferredZones)
		zonesOverlap = float64(shared) / float64(len(profile.PreferredZones)) * 100
	}

	total := base*0.4 + commissionScore*0.4 + zonesOverlap*0.2

	return round2(total), AgentBreakdown{
		CommissionScore: round2(commissionScore),
		ZonesOverlap:    round2(zonesOverlap),
	}
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0

	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func intersectCount(a, b []string) int {
	set := make(map[string]bool, len(b))
	for _, v := range b {
		set[v] = true
	}
	count := 0
	for _, v := range a {
		if set[v] {
			count++
			set[v] = false
		}
	}
	return count
}

func intersectZones(a, b []uuid.UUID) int {
	set := make(map[uuid.UUID]bool, len(b))
	for _, v := range b {
		set[v] = true
	}
	count := 0
	for _, v := range a {
		if set[v] {
			count++
			set[v] = false
		}
	}
	return count
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
