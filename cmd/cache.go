package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/locator-cli/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and prune cached API responses",
}

// -- cache status --

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show metadata for a cached response",
	RunE: func(cmd *cobra.Command, _ []string) error {
		url, _ := cmd.Flags().GetString("url")
		if url == "" {
			return eris.New("--url is required")
		}

		rc := cache.NewResponseCache(cfg.Cache.Dir, cfg.Cache.TTL())
		meta, ok := rc.GetMetadata(url)
		if !ok {
			fmt.Fprintln(os.Stderr, "No cache entry.")
			return nil
		}

		fmt.Printf("cached_at: %s\n", meta.CachedAt.Format("2006-01-02 15:04:05 MST"))
		fmt.Printf("age:       %s\n", meta.Age.Round(time.Second))
		fmt.Printf("expired:   %v\n", meta.Expired)
		return nil
	},
}

// -- cache clear --

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached responses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		url, _ := cmd.Flags().GetString("url")
		all, _ := cmd.Flags().GetBool("all")

		switch {
		case all:
			if err := os.RemoveAll(cfg.Cache.Dir); err != nil {
				return eris.Wrap(err, "clear cache dir")
			}
			fmt.Println("Cache cleared.")
		case url != "":
			rc := cache.NewResponseCache(cfg.Cache.Dir, cfg.Cache.TTL())
			rc.Clear(url)
			fmt.Println("Entry cleared.")
		default:
			return eris.New("either --url or --all is required")
		}
		return nil
	},
}

func init() {
	cacheStatusCmd.Flags().String("url", "", "request URL whose cached response to inspect")
	cacheClearCmd.Flags().String("url", "", "request URL whose cached response to remove")
	cacheClearCmd.Flags().Bool("all", false, "remove the entire cache directory")

	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
