package challenge

import (
	"reflect"
	"testing"
)

func TestScenarios_HaveDocumentsAndPoints(t *testing.T) {
	all := Scenarios()
	if len(all) == 0 {
		t.Fatal("expected at least one scenario")
	}
	for _, s := range all {
		if s.ID == "" || s.Title == "" || s.DocumentText == "" {
			t.Errorf("scenario %q is missing fields", s.ID)
		}
		if len(s.Planted) == 0 {
			t.Errorf("scenario %q has no planted issues", s.ID)
		}
		if s.MaxPoints() <= 0 {
			t.Errorf("scenario %q has no points", s.ID)
		}
	}
}

func TestByID(t *testing.T) {
	if _, ok := ByID("duplicate-office-visit"); !ok {
		t.Error("expected to find duplicate-office-visit")
	}
	if _, ok := ByID("nope"); ok {
		t.Error("expected miss for unknown ID")
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name       string
		scenarioID string
		found      []string
		wantPoints int
		wantMissed []string
		wantErr    bool
	}{
		{
			name:       "all found",
			scenarioID: "unbundled-panel",
			found:      []string{"unbundling", "math_error"},
			wantPoints: 40,
			wantMissed: nil,
		},
		{
			name:       "partial",
			scenarioID: "unbundled-panel",
			found:      []string{"unbundling"},
			wantPoints: 30,
			wantMissed: []string{"math_error"},
		},
		{
			name:       "none found",
			scenarioID: "duplicate-office-visit",
			found:      nil,
			wantPoints: 0,
			wantMissed: []string{"duplicate_charge"},
		},
		{
			name:       "case and whitespace tolerant, duplicates ignored",
			scenarioID: "duplicate-office-visit",
			found:      []string{"  Duplicate_Charge ", "duplicate_charge"},
			wantPoints: 10,
			wantMissed: nil,
		},
		{
			name:       "unknown scenario",
			scenarioID: "nope",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Score(tt.scenarioID, tt.found)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Score() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if result.Points != tt.wantPoints {
				t.Errorf("Points = %d, want %d", result.Points, tt.wantPoints)
			}
			if !reflect.DeepEqual(result.Missed, tt.wantMissed) {
				t.Errorf("Missed = %v, want %v", result.Missed, tt.wantMissed)
			}
		})
	}
}

func TestScore_UnexpectedCodes(t *testing.T) {
	result, err := Score("duplicate-office-visit", []string{"duplicate_charge", "upcoding"})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if !reflect.DeepEqual(result.Unexpected, []string{"upcoding"}) {
		t.Errorf("Unexpected = %v, want [upcoding]", result.Unexpected)
	}
	// Wrong guesses do not subtract points.
	if result.Points != 10 {
		t.Errorf("Points = %d, want 10", result.Points)
	}
}

func TestScore_Percent(t *testing.T) {
	result, err := Score("unbundled-panel", []string{"unbundling"})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if result.Percent != 75.0 {
		t.Errorf("Percent = %v, want 75", result.Percent)
	}
}

func TestAchievements(t *testing.T) {
	tests := []struct {
		points int
		want   int
	}{
		{0, 0},
		{9, 0},
		{10, 1},
		{100, 3},
		{1000, 5},
	}

	for _, tt := range tests {
		got := Achievements(tt.points)
		if len(got) != tt.want {
			t.Errorf("Achievements(%d) unlocked %d, want %d", tt.points, len(got), tt.want)
		}
	}

	// Thresholds come back in ascending order.
	all := Achievements(1 << 30)
	for i := 1; i < len(all); i++ {
		if all[i].Threshold <= all[i-1].Threshold {
			t.Errorf("achievements out of order at %d", i)
		}
	}
}
