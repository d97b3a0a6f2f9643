// Package validate performs the post-scan batch check over normalized store
// records. It is a pure reporting pass: the input is never mutated.
package validate

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/locator-cli/internal/model"
)

// maxLoggedErrors caps per-record error logging to avoid flooding the log on
// a badly broken scan.
const maxLoggedErrors = 10

// RecordResult is the outcome for one record.
type RecordResult struct {
	StoreID  string   `json:"store_id"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Report aggregates the batch outcome.
type Report struct {
	Total      int            `json:"total"`
	Valid      int            `json:"valid"`
	Invalid    int            `json:"invalid"`
	ErrorCount int            `json:"error_count"`
	WarnCount  int            `json:"warn_count"`
	InvalidIDs []string       `json:"invalid_ids,omitempty"`
	Records    []RecordResult `json:"records"`
}

// Records checks each record for required and recommended fields and
// coordinate sanity. In strict mode missing recommended fields are errors
// rather than warnings. Only the first few errors are logged; the rest are
// summarized.
func Records(records []model.StoreRecord, strict bool) *Report {
	log := zap.L().With(zap.String("component", "validate"))

	report := &Report{
		Total:   len(records),
		Records: make([]RecordResult, 0, len(records)),
	}

	logged := 0
	for _, rec := range records {
		rr := checkRecord(rec, strict)

		report.ErrorCount += len(rr.Errors)
		report.WarnCount += len(rr.Warnings)
		if rr.Valid {
			report.Valid++
		} else {
			report.Invalid++
			report.InvalidIDs = append(report.InvalidIDs, rr.StoreID)
			if logged < maxLoggedErrors {
				log.Warn("record failed validation",
					zap.String("store_id", rr.StoreID),
					zap.Strings("errors", rr.Errors),
				)
				logged++
			}
		}
		report.Records = append(report.Records, rr)
	}

	if report.Invalid > logged {
		log.Warn("further validation errors suppressed",
			zap.Int("suppressed", report.Invalid-logged))
	}

	log.Info("validation complete",
		zap.Int("total", report.Total),
		zap.Int("valid", report.Valid),
		zap.Int("invalid", report.Invalid),
		zap.Int("warnings", report.WarnCount),
	)
	return report
}

func checkRecord(rec model.StoreRecord, strict bool) RecordResult {
	rr := RecordResult{StoreID: rec.StoreID}

	required := []struct{ name, value string }{
		{"store_id", rec.StoreID},
		{"name", rec.Name},
		{"street_address", rec.StreetAddress},
		{"city", rec.City},
		{"state", rec.State},
	}
	for _, f := range required {
		if f.value == "" {
			rr.Errors = append(rr.Errors, fmt.Sprintf("missing required field %s", f.name))
		}
	}

	recommend := func(name string, present bool) {
		if present {
			return
		}
		msg := fmt.Sprintf("missing recommended field %s", name)
		if strict {
			rr.Errors = append(rr.Errors, msg)
		} else {
			rr.Warnings = append(rr.Warnings, msg)
		}
	}
	recommend("latitude", rec.Latitude != nil)
	recommend("longitude", rec.Longitude != nil)
	recommend("phone", rec.Phone != "")
	recommend("url", rec.URL != nil)

	if rec.Latitude != nil && (*rec.Latitude < -90 || *rec.Latitude > 90) {
		rr.Errors = append(rr.Errors, fmt.Sprintf("latitude out of range: %v", *rec.Latitude))
	}
	if rec.Longitude != nil && (*rec.Longitude < -180 || *rec.Longitude > 180) {
		rr.Errors = append(rr.Errors, fmt.Sprintf("longitude out of range: %v", *rec.Longitude))
	}

	if n := len(rec.PostalCode); rec.PostalCode != "" && n != 5 && n != 10 {
		rr.Warnings = append(rr.Warnings, fmt.Sprintf("unusual postal code length %d: %q", n, rec.PostalCode))
	}

	rr.Valid = len(rr.Errors) == 0
	return rr
}
