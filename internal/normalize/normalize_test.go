package normalize

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullEntity = `{
	"id": "0123",
	"name": "Boulder",
	"closed": false,
	"mainPhone": "+13034964355",
	"websiteUrl": {"url": "https://www.example.com/stores/boulder"},
	"filters": ["Retail Store"],
	"geocodedCoordinate": {"latitude": 40.0150, "longitude": -105.2705},
	"displayCoordinate": {"latitude": 41.0, "longitude": -106.0},
	"address": {
		"line1": "1789 28th St",
		"city": "Boulder",
		"region": "CO",
		"postalCode": "80301",
		"countryCode": "US",
		"coordinate": {"latitude": 42.0, "longitude": -107.0}
	},
	"hours": {
		"monday": {"openIntervals": [{"start": "10:00", "end": "19:00"}]},
		"saturday": {"openIntervals": [{"start": "09:00", "end": "18:00"}, {"start": "19:00", "end": "20:00"}]}
	}
}`

func TestEntity_FullRecord(t *testing.T) {
	rec, err := Entity(json.RawMessage(fullEntity))
	require.NoError(t, err)

	assert.Equal(t, "0123", rec.StoreID)
	assert.Equal(t, "Boulder", rec.Name)
	assert.Equal(t, "retail", rec.StoreType)
	assert.Equal(t, "1789 28th St", rec.StreetAddress)
	assert.Equal(t, "Boulder", rec.City)
	assert.Equal(t, "CO", rec.State)
	assert.Equal(t, "80301", rec.PostalCode)
	assert.Equal(t, "US", rec.Country)
	assert.Equal(t, "+13034964355", rec.Phone)
	require.NotNil(t, rec.URL)
	assert.Equal(t, "https://www.example.com/stores/boulder", *rec.URL)
	assert.False(t, rec.Closed)
	assert.WithinDuration(t, time.Now().UTC(), rec.ScrapedAt, time.Minute)
}

func TestEntity_PrefersGeocodedCoordinate(t *testing.T) {
	rec, err := Entity(json.RawMessage(fullEntity))
	require.NoError(t, err)

	require.NotNil(t, rec.Latitude)
	require.NotNil(t, rec.Longitude)
	assert.InDelta(t, 40.0150, *rec.Latitude, 1e-9)
	assert.InDelta(t, -105.2705, *rec.Longitude, 1e-9)
}

func TestEntity_CoordinateFallbackChain(t *testing.T) {
	display := `{"id":"1","displayCoordinate":{"latitude":41.0,"longitude":-106.0},
		"address":{"coordinate":{"latitude":42.0,"longitude":-107.0}}}`
	rec, err := Entity(json.RawMessage(display))
	require.NoError(t, err)
	assert.InDelta(t, 41.0, *rec.Latitude, 1e-9)

	embedded := `{"id":"2","address":{"coordinate":{"latitude":42.0,"longitude":-107.0}}}`
	rec, err = Entity(json.RawMessage(embedded))
	require.NoError(t, err)
	assert.InDelta(t, 42.0, *rec.Latitude, 1e-9)

	none := `{"id":"3","address":{}}`
	rec, err = Entity(json.RawMessage(none))
	require.NoError(t, err)
	assert.Nil(t, rec.Latitude)
	assert.Nil(t, rec.Longitude)
}

func TestEntity_Hours(t *testing.T) {
	rec, err := Entity(json.RawMessage(fullEntity))
	require.NoError(t, err)

	assert.Equal(t, "10:00-19:00", rec.HoursMonday)
	// Only the first interval of a day is used.
	assert.Equal(t, "09:00-18:00", rec.HoursSaturday)
	// Absent days are empty strings, never errors.
	assert.Equal(t, "", rec.HoursTuesday)
	assert.Equal(t, "", rec.HoursSunday)
}

func TestEntity_HoursMissingPieces(t *testing.T) {
	raw := `{"id":"1","hours":{
		"monday":{"openIntervals":[]},
		"tuesday":{"openIntervals":[{"start":"10:00"}]},
		"wednesday":{"openIntervals":[{"end":"19:00"}]}
	}}`
	rec, err := Entity(json.RawMessage(raw))
	require.NoError(t, err)

	assert.Equal(t, "", rec.HoursMonday)
	assert.Equal(t, "", rec.HoursTuesday)
	assert.Equal(t, "", rec.HoursWednesday)
}

func TestEntity_HourFieldsAreIntervalOrEmpty(t *testing.T) {
	pattern := regexp.MustCompile(`^(\d{2}:\d{2}-\d{2}:\d{2})?$`)

	rec, err := Entity(json.RawMessage(fullEntity))
	require.NoError(t, err)

	for _, h := range []string{
		rec.HoursMonday, rec.HoursTuesday, rec.HoursWednesday, rec.HoursThursday,
		rec.HoursFriday, rec.HoursSaturday, rec.HoursSunday,
	} {
		assert.Regexp(t, pattern, h)
	}
}

func TestStoreType(t *testing.T) {
	assert.Equal(t, "retail", storeType([]string{"Retail Store"}))
	assert.Equal(t, "outlet", storeType([]string{"Outlet Store", "Retail Store"}))
	// First known tag wins even when not first in the list.
	assert.Equal(t, "retail", storeType([]string{"Pop Up Shop", "Retail Store"}))
	// No known tag: first raw tag, lowercased, spaces to underscores.
	assert.Equal(t, "pop_up_shop", storeType([]string{"Pop Up Shop"}))
	assert.Equal(t, "unknown", storeType(nil))
	assert.Equal(t, "unknown", storeType([]string{}))
}

func TestEntity_WebsiteURLAsString(t *testing.T) {
	rec, err := Entity(json.RawMessage(`{"id":"1","websiteUrl":"https://example.com"}`))
	require.NoError(t, err)
	require.NotNil(t, rec.URL)
	assert.Equal(t, "https://example.com", *rec.URL)
}

func TestEntity_WebsiteURLAbsent(t *testing.T) {
	rec, err := Entity(json.RawMessage(`{"id":"1"}`))
	require.NoError(t, err)
	assert.Nil(t, rec.URL)

	rec, err = Entity(json.RawMessage(`{"id":"1","websiteUrl":""}`))
	require.NoError(t, err)
	assert.Nil(t, rec.URL)
}

func TestEntity_MissingID(t *testing.T) {
	_, err := Entity(json.RawMessage(`{"name":"No ID"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing id")
}

func TestEntity_UnparseableCarriesBestEffortID(t *testing.T) {
	_, err := Entity(json.RawMessage(`[1,2,3]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id=?")
}

func TestEntity_EmptyStringsNotNull(t *testing.T) {
	rec, err := Entity(json.RawMessage(`{"id":"1"}`))
	require.NoError(t, err)

	assert.Equal(t, "", rec.Name)
	assert.Equal(t, "", rec.StreetAddress)
	assert.Equal(t, "", rec.City)
	assert.Equal(t, "", rec.State)
	assert.Equal(t, "", rec.PostalCode)
	assert.Equal(t, "", rec.Country)
	assert.Equal(t, "", rec.Phone)
	assert.Equal(t, "unknown", rec.StoreType)
}
