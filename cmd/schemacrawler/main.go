package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nlweb-ai/schemacrawler/pkg/config"
	"github.com/nlweb-ai/schemacrawler/pkg/events"
	"github.com/nlweb-ai/schemacrawler/pkg/log"
	"github.com/nlweb-ai/schemacrawler/pkg/metrics"
	"github.com/nlweb-ai/schemacrawler/pkg/runtime"
	"github.com/nlweb-ai/schemacrawler/pkg/types"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "schemacrawler",
	Short:   "schemacrawler - multi-tenant schema.org crawler and vector indexer",
	Version: Version,
}

var cfgFile string

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"schemacrawler version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a config file (env and flags still take precedence)")
	config.BindFlags(rootCmd.PersistentFlags())
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(addSiteCmd)
}

func initLogging() {
	cfg, err := loadConfig(rootCmd.PersistentFlags())
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return
	}
	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
	})
}

func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	return config.Load(flags, cfgFile)
}

var metricsAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler, worker pool, and reconciler until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		ctx := context.Background()
		rt, err := runtime.New(ctx, *cfg)
		if err != nil {
			return fmt.Errorf("build runtime: %w", err)
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.HandleFunc("/healthz", metrics.HealthHandler())
		mux.HandleFunc("/ready", metrics.ReadyHandler())
		go func() {
			if err := http.ListenAndServe(metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				fmt.Fprintf(os.Stderr, "metrics server error: %v\n", err)
			}
		}()
		fmt.Printf("metrics/health listening on %s\n", metricsAddr)

		rt.Start()
		fmt.Println("schemacrawler running. Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		fmt.Println("\nshutting down...")
		if err := rt.Stop(); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		fmt.Println("✓ shutdown complete")
		return nil
	},
}

var discoverCmd = &cobra.Command{
	Use:   "discover <site-url>",
	Short: "Run one discovery pass against a single site synchronously",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			return fmt.Errorf("--user is required")
		}

		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		ctx := context.Background()
		rt, err := runtime.New(ctx, *cfg)
		if err != nil {
			return fmt.Errorf("build runtime: %w", err)
		}
		defer rt.Stop()

		sub := rt.Events().Subscribe()
		defer rt.Events().Unsubscribe(sub)
		go watchEvents(sub)

		if err := rt.DiscoverOnce(ctx, args[0], userID); err != nil {
			return fmt.Errorf("discover: %w", err)
		}
		fmt.Println("✓ discovery complete")
		return nil
	},
}

var addSiteCmd = &cobra.Command{
	Use:   "add-site <site-url>",
	Short: "Register a site for the scheduler to crawl on its configured interval",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		intervalHours, _ := cmd.Flags().GetInt("interval-hours")
		if userID == "" {
			return fmt.Errorf("--user is required")
		}

		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		ctx := context.Background()
		rt, err := runtime.New(ctx, *cfg)
		if err != nil {
			return fmt.Errorf("build runtime: %w", err)
		}
		defer rt.Stop()

		site := &types.Site{
			SiteURL:              args[0],
			UserID:               userID,
			ProcessIntervalHours: intervalHours,
			IsActive:             true,
		}
		if err := rt.AddSite(ctx, site); err != nil {
			return fmt.Errorf("add site: %w", err)
		}
		fmt.Printf("✓ added %s for user %s (every %dh)\n", site.SiteURL, site.UserID, site.ProcessIntervalHours)
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "127.0.0.1:9090", "address for /metrics, /healthz, /ready")

	discoverCmd.Flags().String("user", "", "owning user ID (required)")

	addSiteCmd.Flags().String("user", "", "owning user ID (required)")
	addSiteCmd.Flags().Int("interval-hours", 24, "re-crawl interval in hours")
}

// watchEvents prints pipeline events to stdout for --watch-style CLI
// feedback; it is purely diagnostic, never authoritative (pkg/store's
// ProcessingError table is).
func watchEvents(sub events.Subscriber) {
	for evt := range sub {
		fmt.Printf("[%s] %s\n", evt.Type, evt.Message)
	}
}
