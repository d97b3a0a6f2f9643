// Package normalize maps the provider's raw nested entity JSON into the flat
// StoreRecord. The provider payload is dict-shaped and loosely specified, so
// the mapping goes through an intermediate struct with optional fields and
// probes each candidate location explicitly.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/locator-cli/internal/model"
)

// knownStoreTypes maps provider filter tags (lowercased) to canonical store
// type names. The first tag that matches wins.
var knownStoreTypes = map[string]string{
	"retail store":        "retail",
	"flagship store":      "flagship",
	"outlet store":        "outlet",
	"outlet":              "outlet",
	"distribution center": "distribution",
	"warehouse":           "warehouse",
	"pickup point":        "pickup",
	"re/supply":           "resupply",
}

type coordinate struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type openInterval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type dayHours struct {
	OpenIntervals []openInterval `json:"openIntervals"`
}

type rawEntity struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Closed             bool                `json:"closed"`
	MainPhone          string              `json:"mainPhone"`
	WebsiteURL         json.RawMessage     `json:"websiteUrl"`
	Filters            []string            `json:"filters"`
	GeocodedCoordinate *coordinate         `json:"geocodedCoordinate"`
	DisplayCoordinate  *coordinate         `json:"displayCoordinate"`
	Hours              map[string]dayHours `json:"hours"`
	Address            struct {
		Line1       string      `json:"line1"`
		City        string      `json:"city"`
		Region      string      `json:"region"`
		PostalCode  string      `json:"postalCode"`
		CountryCode string      `json:"countryCode"`
		Coordinate  *coordinate `json:"coordinate"`
	} `json:"address"`
}

// Entity converts one raw provider result into a StoreRecord. An unparseable
// object or one without an identifiable id yields an error carrying a
// best-effort id for diagnostics; the caller logs and skips it.
func Entity(raw json.RawMessage) (*model.StoreRecord, error) {
	var e rawEntity
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, eris.Wrapf(err, "normalize: unparseable entity (id=%s)", probeID(raw))
	}
	if e.ID == "" {
		return nil, eris.Errorf("normalize: entity missing id (best effort: %s)", probeID(raw))
	}

	rec := &model.StoreRecord{
		StoreID:       e.ID,
		Name:          e.Name,
		StoreType:     storeType(e.Filters),
		StreetAddress: e.Address.Line1,
		City:          e.Address.City,
		State:         e.Address.Region,
		PostalCode:    e.Address.PostalCode,
		Country:       e.Address.CountryCode,
		Phone:         e.MainPhone,
		URL:           websiteURL(e.WebsiteURL),
		Closed:        e.Closed,
		ScrapedAt:     time.Now().UTC(),
	}

	// Coordinate preference: geocoded, then display, then address-embedded.
	for _, c := range []*coordinate{e.GeocodedCoordinate, e.DisplayCoordinate, e.Address.Coordinate} {
		if c != nil && c.Latitude != nil && c.Longitude != nil {
			rec.Latitude = c.Latitude
			rec.Longitude = c.Longitude
			break
		}
	}

	rec.HoursMonday = dayInterval(e.Hours, "monday")
	rec.HoursTuesday = dayInterval(e.Hours, "tuesday")
	rec.HoursWednesday = dayInterval(e.Hours, "wednesday")
	rec.HoursThursday = dayInterval(e.Hours, "thursday")
	rec.HoursFriday = dayInterval(e.Hours, "friday")
	rec.HoursSaturday = dayInterval(e.Hours, "saturday")
	rec.HoursSunday = dayInterval(e.Hours, "sunday")

	return rec, nil
}

// storeType resolves the categorical tag list. First known tag wins; an
// unknown first tag is lowercased with spaces replaced by underscores; an
// empty list is "unknown".
func storeType(tags []string) string {
	if len(tags) == 0 {
		return "unknown"
	}
	for _, tag := range tags {
		if t, ok := knownStoreTypes[strings.ToLower(tag)]; ok {
			return t
		}
	}
	return strings.ReplaceAll(strings.ToLower(tags[0]), " ", "_")
}

// dayInterval formats the first open interval of a weekday as "HH:MM-HH:MM".
// Any missing piece yields the empty string.
func dayInterval(hours map[string]dayHours, day string) string {
	d, ok := hours[day]
	if !ok || len(d.OpenIntervals) == 0 {
		return ""
	}
	iv := d.OpenIntervals[0]
	if iv.Start == "" || iv.End == "" {
		return ""
	}
	return fmt.Sprintf("%s-%s", iv.Start, iv.End)
}

// websiteURL accepts either a plain string or an object with a url field.
func websiteURL(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil
		}
		return &s
	}

	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.URL != "" {
		return &obj.URL
	}
	return nil
}

// probeID extracts whatever id-shaped value exists in an otherwise unusable
// payload, for log output only.
func probeID(raw json.RawMessage) string {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "?"
	}
	if id, ok := m["id"].(string); ok && id != "" {
		return id
	}
	return "?"
}
