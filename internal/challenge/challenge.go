// Package challenge implements the gamified audit mode: fixed practice
// documents with planted billing irregularities, scored against the codes
// a player reports. Everything here is static data plus arithmetic.
package challenge

import (
	"fmt"
	"sort"
	"strings"
)

// PlantedIssue is one irregularity hidden in a scenario document.
type PlantedIssue struct {
	// Code matches the analyzer finding codes (duplicate_charge,
	// upcoding, unbundling, balance_billing, math_error).
	Code    string `json:"code"`
	Points  int    `json:"points"`
	Summary string `json:"summary"`
}

// Scenario is one practice document with known planted issues.
type Scenario struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Difficulty   string         `json:"difficulty"`
	DocumentText string         `json:"document_text"`
	Planted      []PlantedIssue `json:"planted"`
}

// MaxPoints is the total available in this scenario.
func (s Scenario) MaxPoints() int {
	total := 0
	for _, p := range s.Planted {
		total += p.Points
	}
	return total
}

// Result is the outcome of scoring one attempt.
type Result struct {
	ScenarioID string  `json:"scenario_id"`
	Points     int     `json:"points"`
	MaxPoints  int     `json:"max_points"`
	Percent    float64 `json:"percent"`

	// Found are planted codes the player reported, Missed the ones they
	// did not, Unexpected the reported codes with nothing planted.
	Found      []string `json:"found"`
	Missed     []string `json:"missed"`
	Unexpected []string `json:"unexpected,omitempty"`
}

// Achievement is a named score threshold.
type Achievement struct {
	Name      string `json:"name"`
	Threshold int    `json:"threshold"`
}

// achievements in ascending threshold order.
var achievements = []Achievement{
	{Name: "First Dent", Threshold: 10},
	{Name: "Bill Skeptic", Threshold: 50},
	{Name: "Claim Wrangler", Threshold: 100},
	{Name: "EOB Whisperer", Threshold: 250},
	{Name: "Bill Dozer", Threshold: 500},
}

var scenarios = []Scenario{
	{
		ID:         "duplicate-office-visit",
		Title:      "The Double Office Visit",
		Difficulty: "easy",
		DocumentText: "CITYCARE FAMILY PRACTICE — STATEMENT\n" +
			"Patient: J. Doe    Date of service: 2024-03-15\n\n" +
			"99213 Office visit, established patient ... $150.00\n" +
			"99213 Office visit, established patient ... $150.00\n" +
			"85025 Complete blood count .............. $45.00\n\n" +
			"TOTAL DUE: $345.00\n",
		Planted: []PlantedIssue{
			{Code: "duplicate_charge", Points: 10, Summary: "The 99213 office visit is billed twice for the same date."},
		},
	},
	{
		ID:         "upcoded-er-visit",
		Title:      "The Inflated Emergency Visit",
		Difficulty: "medium",
		DocumentText: "GENERAL HOSPITAL — ITEMIZED BILL\n" +
			"Patient: J. Doe    Date of service: 2024-05-02\n" +
			"Chief complaint: sprained ankle, discharged same day\n\n" +
			"99285 Emergency dept visit, highest severity ... $1,450.00\n" +
			"73600 X-ray ankle, 2 views ..................... $220.00\n" +
			"A6449 Elastic bandage .......................... $38.00\n\n" +
			"TOTAL DUE: $1,708.00\n",
		Planted: []PlantedIssue{
			{Code: "upcoding", Points: 20, Summary: "A level-5 emergency code (99285) for a simple sprain suggests upcoding."},
		},
	},
	{
		ID:         "unbundled-panel",
		Title:      "The Exploded Lab Panel",
		Difficulty: "hard",
		DocumentText: "REGIONAL MEDICAL LABS — STATEMENT\n" +
			"Patient: J. Doe    Date of service: 2024-06-20\n\n" +
			"84295 Sodium ............. $28.00\n" +
			"84132 Potassium .......... $28.00\n" +
			"82435 Chloride ........... $28.00\n" +
			"82374 Carbon dioxide ..... $28.00\n" +
			"82565 Creatinine ......... $32.00\n" +
			"84520 Urea nitrogen ...... $32.00\n" +
			"82947 Glucose ............ $30.00\n\n" +
			"Subtotal: $206.00\n" +
			"TOTAL DUE: $216.00\n",
		Planted: []PlantedIssue{
			{Code: "unbundling", Points: 30, Summary: "Seven components of a basic metabolic panel (80048) billed separately."},
			{Code: "math_error", Points: 10, Summary: "The listed charges sum to $206.00 but the total due is $216.00."},
		},
	},
	{
		ID:         "balance-billed-eob",
		Title:      "The Surprise Balance",
		Difficulty: "medium",
		DocumentText: "ACME HEALTH — EXPLANATION OF BENEFITS\n" +
			"Provider: In-network imaging center\n" +
			"Date of service: 2024-07-11\n\n" +
			"70551 MRI brain w/o contrast\n" +
			"  Billed: $2,400.00   Allowed: $900.00\n" +
			"  Plan paid: $720.00  Patient responsibility: $180.00\n\n" +
			"PROVIDER INVOICE (attached): amount due $1,680.00\n",
		Planted: []PlantedIssue{
			{Code: "balance_billing", Points: 25, Summary: "An in-network provider is billing the $1,500 above the allowed amount."},
		},
	},
}

// Scenarios returns all challenge scenarios.
func Scenarios() []Scenario {
	result := make([]Scenario, len(scenarios))
	copy(result, scenarios)
	return result
}

// ByID looks up a scenario.
func ByID(id string) (Scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return Scenario{}, false
}

// Score grades one attempt: the codes a player reported against the
// scenario's planted issues. Reported codes are matched case-insensitively
// and duplicates are ignored.
func Score(scenarioID string, foundCodes []string) (Result, error) {
	scenario, ok := ByID(scenarioID)
	if !ok {
		return Result{}, fmt.Errorf("unknown scenario: %s", scenarioID)
	}

	reported := make(map[string]bool, len(foundCodes))
	for _, code := range foundCodes {
		code = strings.ToLower(strings.TrimSpace(code))
		if code != "" {
			reported[code] = true
		}
	}

	result := Result{
		ScenarioID: scenarioID,
		MaxPoints:  scenario.MaxPoints(),
	}

	planted := make(map[string]bool, len(scenario.Planted))
	for _, p := range scenario.Planted {
		planted[p.Code] = true
		if reported[p.Code] {
			result.Points += p.Points
			result.Found = append(result.Found, p.Code)
		} else {
			result.Missed = append(result.Missed, p.Code)
		}
	}

	for code := range reported {
		if !planted[code] {
			result.Unexpected = append(result.Unexpected, code)
		}
	}
	sort.Strings(result.Unexpected)

	if result.MaxPoints > 0 {
		result.Percent = 100 * float64(result.Points) / float64(result.MaxPoints)
	}
	return result, nil
}

// Achievements returns every achievement unlocked at the given cumulative
// point total, in ascending threshold order.
func Achievements(totalPoints int) []Achievement {
	var unlocked []Achievement
	for _, a := range achievements {
		if totalPoints >= a.Threshold {
			unlocked = append(unlocked, a)
		}
	}
	return unlocked
}
