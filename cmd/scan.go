package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/locator-cli/internal/cache"
	"github.com/sells-group/locator-cli/internal/config"
	"github.com/sells-group/locator-cli/internal/fetcher"
	"github.com/sells-group/locator-cli/internal/grid"
	"github.com/sells-group/locator-cli/internal/scan"
	"github.com/sells-group/locator-cli/pkg/yext"
)

var (
	scanRetailer     string
	scanLimit        int
	scanTest         bool
	scanForceRefresh bool
	scanDryRun       bool
	scanStrict       bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a full grid scan for a retailer",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		profile, err := cfg.Profile(scanRetailer)
		if err != nil {
			return err
		}

		if scanDryRun {
			return printDryRun(os.Stdout, profile)
		}
		if profile.APIKey == "" {
			return eris.New("no API key configured (LOCATOR_YEXT_API_KEY or retailers.<name>.api_key)")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		run, err := st.CreateScan(ctx, scanRetailer)
		if err != nil {
			return eris.Wrap(err, "create scan run")
		}

		httpClient := fetcher.New(fetcher.Options{
			UserAgent:  cfg.Fetcher.UserAgent,
			Timeout:    time.Duration(cfg.Fetcher.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Fetcher.MaxRetries,
			DefaultRPS: cfg.Fetcher.RateLimit,
		})
		respCache := cache.NewResponseCache(cfg.Cache.Dir, cfg.Cache.TTL())

		factory := func() (yext.Client, error) {
			return yext.New(profile.APIKey,
				yext.WithBaseURL(cfg.Yext.BaseURL),
				yext.WithLocale(cfg.Yext.Locale),
				yext.WithGetter(httpClient),
				yext.WithResponseCache(respCache, scanForceRefresh),
			), nil
		}

		engine := scan.NewEngine(factory)
		result, err := engine.Run(ctx, scan.Options{
			Retailer:     profile.Retailer,
			Bounds:       profile.GridBounds(),
			SpacingMiles: profile.SpacingMiles,
			RadiusMiles:  profile.RadiusMiles,
			Workers:      profile.Workers,
			Limit:        scanLimit,
			Test:         scanTest,
			Strict:       scanStrict,
		})
		if err != nil {
			if failErr := st.FailScan(ctx, run.ID, err.Error()); failErr != nil {
				zap.L().Warn("record scan failure", zap.Error(failErr))
			}
			return eris.Wrapf(err, "scan %s", scanRetailer)
		}

		if err := st.CompleteScan(ctx, run.ID, result); err != nil {
			return eris.Wrap(err, "persist scan result")
		}

		zap.L().Info("scan complete",
			zap.String("retailer", scanRetailer),
			zap.String("run_id", run.ID),
			zap.Int("stores", result.Count),
			zap.Int("points_searched", result.PointsSearched),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// printDryRun shows the resolved profile and the would-be grid size without
// touching the network or the store.
func printDryRun(w io.Writer, profile config.Profile) error {
	points, err := grid.Generate(profile.GridBounds(), profile.SpacingMiles)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(profile)
	if err != nil {
		return eris.Wrap(err, "marshal profile")
	}
	fmt.Fprint(w, string(out))
	fmt.Fprintf(w, "grid_points: %d\n", len(points))
	return nil
}

func init() {
	scanCmd.Flags().StringVar(&scanRetailer, "retailer", "", "retailer profile name (required)")
	scanCmd.Flags().IntVar(&scanLimit, "limit", 0, "stop after N unique stores (0 = unlimited)")
	scanCmd.Flags().BoolVar(&scanTest, "test", false, "coarser grid for a fast validation pass")
	scanCmd.Flags().BoolVar(&scanForceRefresh, "force-refresh", false, "bypass cached API responses")
	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "print the resolved profile and grid size, no network calls")
	scanCmd.Flags().BoolVar(&scanStrict, "strict", false, "treat missing recommended fields as validation errors")
	_ = scanCmd.MarkFlagRequired("retailer")
	rootCmd.AddCommand(scanCmd)
}
