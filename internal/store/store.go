// Package store persists scan runs and their result sets. It is the sink for
// the scan pipeline: a completed run carries the full normalized record list
// plus its count.
package store

import (
	"context"

	"github.com/sells-group/locator-cli/internal/model"
)

// ScanFilter specifies criteria for listing scan runs.
type ScanFilter struct {
	Retailer string           `json:"retailer,omitempty"`
	Status   model.ScanStatus `json:"status,omitempty"`
	Limit    int              `json:"limit,omitempty"`
	Offset   int              `json:"offset,omitempty"`
}

// Store defines the persistence interface for scan runs.
type Store interface {
	CreateScan(ctx context.Context, retailer string) (*model.ScanRun, error)
	CompleteScan(ctx context.Context, scanID string, result *model.ScanResult) error
	FailScan(ctx context.Context, scanID string, reason string) error
	GetScan(ctx context.Context, scanID string) (*model.ScanRun, error)
	ListScans(ctx context.Context, filter ScanFilter) ([]model.ScanRun, error)

	Migrate(ctx context.Context) error
	Close() error
}
