// Package scan fans grid points out to a bounded worker pool and merges the
// normalized results into a single deduplicated collection. The shared result
// set is guarded by one mutex; progress accounting uses independent atomics so
// it never contends with record insertion. The first-arriving record for a
// store id wins; overlapping grid points are expected to return equivalent
// data for the same store, so the specific winner is immaterial.
package scan

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/locator-cli/internal/grid"
	"github.com/sells-group/locator-cli/internal/model"
	"github.com/sells-group/locator-cli/internal/normalize"
	"github.com/sells-group/locator-cli/internal/validate"
	"github.com/sells-group/locator-cli/pkg/yext"
)

const (
	// progressInterval is the completed-point count between progress logs.
	progressInterval = 100

	// testSpacingFactor coarsens the grid in test mode for fast validation
	// runs against the live provider.
	testSpacingFactor = 4.0
)

// SessionFactory returns a fresh search client. Each worker task acquires its
// own session and closes it when the point is done.
type SessionFactory func() (yext.Client, error)

// Options configures one scan run.
type Options struct {
	Retailer     string
	Bounds       grid.Bounds
	SpacingMiles float64
	RadiusMiles  float64
	Workers      int
	Limit        int  // max records; 0 means unlimited
	Test         bool // coarser grid for fast validation
	Strict       bool // strict validation of the final set
}

// Engine runs grid scans.
type Engine struct {
	newSession SessionFactory
}

// NewEngine creates an Engine using the given session factory.
func NewEngine(newSession SessionFactory) *Engine {
	return &Engine{newSession: newSession}
}

// scanState is the merge-side state for one run, owned by the engine for the
// scan's duration and mutated only under mu.
type scanState struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	results []model.StoreRecord
	// unique mirrors len(results) for lock-free progress reads.
	unique   atomic.Int64
	limitHit bool
}

// Run executes a full grid scan and returns the deduplicated, validated result
// set. Individual dead grid points degrade to zero records; only setup
// failures (grid generation, nil session factory) abort the scan.
func (e *Engine) Run(ctx context.Context, opts Options) (*model.ScanResult, error) {
	log := zap.L().With(
		zap.String("component", "scan.engine"),
		zap.String("retailer", opts.Retailer),
	)

	if e.newSession == nil {
		return nil, eris.New("scan: session factory is required")
	}
	if opts.Workers <= 0 {
		opts.Workers = 6
	}

	spacing := opts.SpacingMiles
	if opts.Test {
		spacing *= testSpacingFactor
		log.Info("test mode: coarsening grid", zap.Float64("spacing_miles", spacing))
	}

	points, err := grid.Generate(opts.Bounds, spacing)
	if err != nil {
		return nil, eris.Wrap(err, "scan: generate grid")
	}
	total := len(points)
	log.Info("grid generated",
		zap.Int("points", total),
		zap.Float64("spacing_miles", spacing),
		zap.Int("workers", opts.Workers),
	)

	state := &scanState{seen: make(map[string]struct{})}
	var completed atomic.Int64

	// Reaching the limit cancels work that has not started; in-flight points
	// finish and their surplus records are discarded during merge.
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	g, gctx := errgroup.WithContext(scanCtx)
	g.SetLimit(opts.Workers)

	for _, pt := range points {
		g.Go(func() error {
			if gctx.Err() == nil {
				records := e.searchPoint(gctx, log, pt, opts.RadiusMiles)
				if e.merge(state, records, opts.Limit) {
					cancel()
				}
			}

			done := completed.Add(1)
			if done%progressInterval == 0 || done == int64(total) {
				log.Info("scan progress",
					zap.Int64("points_completed", done),
					zap.Int("points_total", total),
					zap.Float64("fraction", float64(done)/float64(total)),
					zap.Int64("unique_stores", state.unique.Load()),
				)
			}
			return nil
		})
	}

	// Workers never return errors; Wait only drains.
	_ = g.Wait()

	// Finalize.
	results := state.results
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	report := validate.Records(results, opts.Strict)

	log.Info("scan complete",
		zap.Int("stores", len(results)),
		zap.Int("points_searched", total),
		zap.Bool("limit_hit", state.limitHit),
		zap.Int("invalid_records", report.Invalid),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &model.ScanResult{
		Stores:          results,
		Count:           len(results),
		PointsSearched:  total,
		CheckpointsUsed: false,
	}, nil
}

// searchPoint fetches and normalizes one grid point. Every failure mode
// degrades to fewer records; nothing propagates.
func (e *Engine) searchPoint(ctx context.Context, log *zap.Logger, pt grid.Point, radiusMiles float64) []model.StoreRecord {
	session, err := e.newSession()
	if err != nil {
		log.Warn("session acquisition failed, skipping point",
			zap.Float64("lat", pt.Lat), zap.Float64("lng", pt.Lng), zap.Error(err))
		return nil
	}
	defer session.Close()

	raw := session.Search(ctx, pt, radiusMiles)

	records := make([]model.StoreRecord, 0, len(raw))
	for _, entity := range raw {
		rec, err := normalize.Entity(entity)
		if err != nil {
			log.Warn("skipping unparseable entity",
				zap.Float64("lat", pt.Lat), zap.Float64("lng", pt.Lng), zap.Error(err))
			continue
		}
		records = append(records, *rec)
	}
	return records
}

// merge inserts records not yet present by store id, first-seen wins.
// Insertion stops at the limit; surplus records in the batch are dropped.
// It reports true exactly once, on the call that reaches the limit.
func (e *Engine) merge(state *scanState, records []model.StoreRecord, limit int) bool {
	if len(records) == 0 {
		return false
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	for _, rec := range records {
		if limit > 0 && len(state.results) >= limit {
			break
		}
		if _, dup := state.seen[rec.StoreID]; dup {
			continue
		}
		state.seen[rec.StoreID] = struct{}{}
		state.results = append(state.results, rec)
		state.unique.Store(int64(len(state.results)))
	}

	if limit > 0 && len(state.results) >= limit && !state.limitHit {
		state.limitHit = true
		return true
	}
	return false
}
