package model

import "time"

// StoreRecord is the normalized, flattened representation of one physical
// retail location. StoreID is the dedup key and is globally unique within one
// scan's output. String fields default to "" rather than null; only
// coordinates and URL are nullable.
type StoreRecord struct {
	StoreID       string   `json:"store_id"`
	Name          string   `json:"name"`
	StoreType     string   `json:"store_type"`
	StreetAddress string   `json:"street_address"`
	City          string   `json:"city"`
	State         string   `json:"state"`
	PostalCode    string   `json:"postal_code"`
	Country       string   `json:"country"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Phone         string   `json:"phone"`
	URL           *string  `json:"url"`

	// Per-weekday formatted hour intervals, each either "HH:MM-HH:MM" or "".
	HoursMonday    string `json:"hours_monday"`
	HoursTuesday   string `json:"hours_tuesday"`
	HoursWednesday string `json:"hours_wednesday"`
	HoursThursday  string `json:"hours_thursday"`
	HoursFriday    string `json:"hours_friday"`
	HoursSaturday  string `json:"hours_saturday"`
	HoursSunday    string `json:"hours_sunday"`

	Closed    bool      `json:"closed"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// ScanStatus tracks a scan run's lifecycle in the store.
type ScanStatus string

const (
	ScanStatusRunning  ScanStatus = "running"
	ScanStatusComplete ScanStatus = "complete"
	ScanStatusFailed   ScanStatus = "failed"
)

// ScanRun is one persisted execution of the grid scan.
type ScanRun struct {
	ID         string      `json:"id"`
	Retailer   string      `json:"retailer"`
	Status     ScanStatus  `json:"status"`
	Result     *ScanResult `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

// ScanResult is the outcome of one scan: the deduplicated record set plus
// counts. CheckpointsUsed is always false for the stateless grid scan; the
// field exists so downstream consumers share one result shape with resumable
// scrapers.
type ScanResult struct {
	Stores          []StoreRecord `json:"stores"`
	Count           int           `json:"count"`
	PointsSearched  int           `json:"points_searched"`
	CheckpointsUsed bool          `json:"checkpoints_used"`
}
