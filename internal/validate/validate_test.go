package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/locator-cli/internal/model"
)

func ptr[T any](v T) *T { return &v }

func goodRecord() model.StoreRecord {
	return model.StoreRecord{
		StoreID:       "0123",
		Name:          "Boulder",
		StreetAddress: "1789 28th St",
		City:          "Boulder",
		State:         "CO",
		PostalCode:    "80301",
		Latitude:      ptr(40.0150),
		Longitude:     ptr(-105.2705),
		Phone:         "+13034964355",
		URL:           ptr("https://example.com"),
	}
}

func TestRecords_AllValid(t *testing.T) {
	report := Records([]model.StoreRecord{goodRecord(), goodRecord()}, false)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Valid)
	assert.Equal(t, 0, report.Invalid)
	assert.Equal(t, 0, report.ErrorCount)
	assert.Empty(t, report.InvalidIDs)
}

func TestRecords_MissingRequiredField(t *testing.T) {
	rec := goodRecord()
	rec.City = ""

	report := Records([]model.StoreRecord{rec}, false)

	require.Equal(t, 1, report.Invalid)
	assert.Equal(t, []string{"0123"}, report.InvalidIDs)
	assert.Contains(t, report.Records[0].Errors[0], "city")
}

func TestRecords_RecommendedFieldWarnsByDefault(t *testing.T) {
	rec := goodRecord()
	rec.Phone = ""
	rec.URL = nil

	report := Records([]model.StoreRecord{rec}, false)

	assert.Equal(t, 1, report.Valid)
	assert.Equal(t, 2, report.WarnCount)
	assert.Equal(t, 0, report.ErrorCount)
}

func TestRecords_StrictPromotesRecommendedToError(t *testing.T) {
	rec := goodRecord()
	rec.Latitude = nil
	rec.Longitude = nil

	report := Records([]model.StoreRecord{rec}, true)

	assert.Equal(t, 1, report.Invalid)
	assert.Equal(t, 2, report.ErrorCount)
	assert.Equal(t, 0, report.WarnCount)
}

func TestRecords_CoordinateRange(t *testing.T) {
	rec := goodRecord()
	rec.Latitude = ptr(91.0)
	rec.Longitude = ptr(-181.0)

	report := Records([]model.StoreRecord{rec}, false)

	require.Equal(t, 1, report.Invalid)
	assert.Len(t, report.Records[0].Errors, 2)
}

func TestRecords_PostalCodeLength(t *testing.T) {
	for code, warn := range map[string]bool{
		"80301":      false,
		"80301-1234": false,
		"8030":       true,
		"803011":     true,
	} {
		rec := goodRecord()
		rec.PostalCode = code
		report := Records([]model.StoreRecord{rec}, false)
		if warn {
			assert.Equal(t, 1, report.WarnCount, "postal code %q", code)
		} else {
			assert.Equal(t, 0, report.WarnCount, "postal code %q", code)
		}
		// Postal length is never an error.
		assert.Equal(t, 1, report.Valid, "postal code %q", code)
	}
}

func TestRecords_EmptyInput(t *testing.T) {
	report := Records(nil, false)
	assert.Equal(t, 0, report.Total)
	assert.Empty(t, report.Records)
}

func TestRecords_DoesNotMutateInput(t *testing.T) {
	rec := goodRecord()
	input := []model.StoreRecord{rec}
	_ = Records(input, true)
	assert.Equal(t, rec, input[0])
}
