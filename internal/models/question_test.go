package models

import (
	"testing"
	"time"
)

func TestQuestion_DecodeSettings(t *testing.T) {
	t.Run("RatingDefaults", func(t *testing.T) {
		q := Question{Type: QuestionRating}
		if err := q.DecodeSettings(); err != nil {
			t.Fatalf("DecodeSettings failed: %v", err)
		}
		min, max := q.RatingBounds()
		if min != DefaultRatingMin || max != DefaultRatingMax {
			t.Errorf("Expected default bounds [%d, %d], got [%d, %d]",
				DefaultRatingMin, DefaultRatingMax, min, max)
		}
	})

	t.Run("RatingPartialOverride", func(t *testing.T) {
		q := Question{Type: QuestionRating, Settings: []byte(`{"max_value": 10}`)}
		if err := q.DecodeSettings(); err != nil {
			t.Fatalf("DecodeSettings failed: %v", err)
		}
		min, max := q.RatingBounds()
		if min != 1 || max != 10 {
			t.Errorf("Expected [1, 10], got [%d, %d]", min, max)
		}
	})

	t.Run("ChoiceOptionsInDeclaredOrder", func(t *testing.T) {
		q := Question{
			Type:     QuestionMultipleSelect,
			Settings: []byte(`{"options":[{"label":"B","value":"b"},{"label":"A","value":"a"}]}`),
		}
		if err := q.DecodeSettings(); err != nil {
			t.Fatalf("DecodeSettings failed: %v", err)
		}
		options := q.Options()
		if len(options) != 2 || options[0].Value != "b" || options[1].Value != "a" {
			t.Errorf("Options must keep declared order, got %v", options)
		}
	})

	t.Run("UnknownTypeRejected", func(t *testing.T) {
		q := Question{Type: "matrix"}
		if err := q.DecodeSettings(); err == nil {
			t.Fatal("Expected error for unknown question type")
		}
	})

	t.Run("MalformedSettingsRejected", func(t *testing.T) {
		q := Question{Type: QuestionSingleSelect, Settings: []byte(`{"options": 5}`)}
		if err := q.DecodeSettings(); err == nil {
			t.Fatal("Expected error for malformed settings")
		}
	})
}

func TestSurvey_CanAcceptResponse(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)
	limit := 2

	tests := []struct {
		name      string
		survey    Survey
		responses int
		want      bool
	}{
		{"ActiveNoLimits", Survey{Status: StatusActive}, 100, true},
		{"Draft", Survey{Status: StatusDraft}, 0, false},
		{"Closed", Survey{Status: StatusClosed}, 0, false},
		{"Expired", Survey{Status: StatusActive, ExpiresAt: &past}, 0, false},
		{"ExpiresExactlyNow", Survey{Status: StatusActive, ExpiresAt: &now}, 0, false},
		{"NotYetExpired", Survey{Status: StatusActive, ExpiresAt: &future}, 0, true},
		{"UnderCap", Survey{Status: StatusActive, MaxResponses: &limit}, 1, true},
		{"AtCap", Survey{Status: StatusActive, MaxResponses: &limit}, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.survey.CanAcceptResponse(now, tt.responses); got != tt.want {
				t.Errorf("CanAcceptResponse = %v, want %v", got, tt.want)
			}
		})
	}
}
