package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/locator-cli/internal/validate"
)

var (
	validateRunID  string
	validateStrict bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Re-validate the records of a stored scan run",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.GetScan(ctx, validateRunID)
		if err != nil {
			return eris.Wrap(err, "validate")
		}
		if run.Result == nil {
			return eris.Errorf("run %s has no result set (status %s)", run.ID, run.Status)
		}

		report := validate.Records(run.Result.Stores, validateStrict)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateRunID, "run", "", "scan run ID (required)")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "treat missing recommended fields as errors")
	_ = validateCmd.MarkFlagRequired("run")
	rootCmd.AddCommand(validateCmd)
}
