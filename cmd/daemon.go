package cmd

import (
	"context"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm/logger"

	"github.com/worklens/worklens/internal/capture"
	"github.com/worklens/worklens/internal/config"
	"github.com/worklens/worklens/internal/enrich"
	"github.com/worklens/worklens/internal/observe"
	"github.com/worklens/worklens/internal/store"
	"github.com/worklens/worklens/internal/watcher"
)

var daemonBg bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the capture loop",
	Long: `Starts the long-lived capture daemon. One snapshot is recorded per
interval tick; a failed tick is logged and the loop continues.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

func init() {
	daemonCmd.Flags().BoolVar(&daemonBg, "bg", false, "Suppress the startup banner")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// Startup failures are fatal; everything after this point logs and
	// continues.
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := enrich.NewClient(
		cfg.Enrichment.BaseURL,
		cfg.Enrichment.APIKey,
		cfg.Enrichment.Model,
		cfg.Enrichment.Timeout(),
	)
	enumerator := observe.NewHelperEnumerator(cfg.HelperPath)

	var screens capture.Screenshotter
	if cfg.Screenshots.Enabled {
		screens = &capture.ScreencaptureTool{Dir: cfg.Screenshots.Dir}
	}

	// The daemon reinitializes the store when the database file is deleted
	// out from under it; a signal ends the outer loop instead.
	for {
		st, err := openStore(cfg)
		if err != nil {
			return err
		}

		runCtx, stop := context.WithCancel(ctx)
		var dbDeleted atomic.Bool

		w, err := watcher.New(cfg.DBPath(), func() {
			dbDeleted.Store(true)
			stop()
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to create database watcher")
		} else if err := w.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start database watcher")
		}

		recorder := store.NewRecorder(st, client, cfg.Browsers)
		agent := capture.NewAgent(cfg, st, recorder, enumerator, screens, client, daemonBg)

		runErr := agent.Run(runCtx)

		stop()
		if w != nil {
			_ = w.Stop()
		}
		_ = st.Close()

		if runErr != nil {
			return runErr
		}
		if !dbDeleted.Load() {
			// Context cancelled by a shutdown signal.
			log.Info().Msg("Received shutdown signal, stopping")
			return nil
		}
		log.Warn().Msg("Database deleted, reinitializing store")
	}
}

// openStore opens (or reopens) the activity database. The data directory is
// recreated first: a wipe of the whole directory is one of the deletion
// events the daemon recovers from.
func openStore(cfg *config.Config) (*store.Store, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	return store.NewStore(store.Config{
		Path:     cfg.DBPath(),
		LogLevel: logger.Silent,
	})
}
