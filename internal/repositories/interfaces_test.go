package repositories

import (
	"testing"

	"github.com/SAP-F-2025/survey-service/internal/models"
)

func TestSurveyFilters_Fingerprint(t *testing.T) {
	active := models.StatusActive
	closed := models.StatusClosed
	creator := "creator-1"

	base := SurveyFilters{
		Status:    &active,
		CreatorID: &creator,
		Limit:     20,
		Offset:    0,
		SortBy:    "created_at",
		SortOrder: "desc",
	}

	t.Run("EqualFiltersHashEqual", func(t *testing.T) {
		same := base
		if base.Fingerprint() != same.Fingerprint() {
			t.Error("Identical filters must produce identical fingerprints")
		}
	})

	t.Run("DifferentFiltersHashDifferent", func(t *testing.T) {
		variants := []SurveyFilters{
			{Status: &closed, CreatorID: &creator, Limit: 20, SortBy: "created_at", SortOrder: "desc"},
			{Status: &active, Limit: 20, SortBy: "created_at", SortOrder: "desc"},
			{Status: &active, CreatorID: &creator, Limit: 50, SortBy: "created_at", SortOrder: "desc"},
			{Status: &active, CreatorID: &creator, Limit: 20, Offset: 20, SortBy: "created_at", SortOrder: "desc"},
			{Status: &active, CreatorID: &creator, Limit: 20, SortBy: "title", SortOrder: "desc"},
			{Status: &active, CreatorID: &creator, Limit: 20, SortBy: "created_at", SortOrder: "asc"},
		}
		seen := map[string]bool{base.Fingerprint(): true}
		for i, v := range variants {
			fp := v.Fingerprint()
			if seen[fp] {
				t.Errorf("Variant %d collides with a previous fingerprint", i)
			}
			seen[fp] = true
		}
	})

	t.Run("StableLength", func(t *testing.T) {
		if got := len(base.Fingerprint()); got != 16 {
			t.Errorf("Expected 16 hex chars, got %d", got)
		}
	})
}
