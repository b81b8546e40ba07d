package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/benaskins/sidecar/internal/api"
	"github.com/benaskins/sidecar/internal/app"
	"github.com/benaskins/sidecar/internal/config"
	"github.com/benaskins/sidecar/internal/journal"
	"github.com/benaskins/sidecar/internal/logging"
	"github.com/benaskins/sidecar/internal/supervisor"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Host the backend sidecar",
	Long: "Launch the backend sidecar, wait for it to become ready and stop it on exit. " +
		"Runs a terminal window by default; --headless waits for SIGINT or SIGTERM instead.",
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runHeadless    bool
	runDev         bool
	runConfigPath  string
	runMetricsAddr string
	runResourceDir string
)

func init() {
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "Run without the terminal window")
	runCmd.Flags().BoolVar(&runDev, "dev", false, "Do not launch the backend; expect it to be started manually")
	runCmd.Flags().StringVar(&runConfigPath, "config", config.DefaultPath(), "Config file path")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "Optional TCP address for status and metrics (e.g. 127.0.0.1:9464)")
	runCmd.Flags().StringVar(&runResourceDir, "resource-dir", "", "Override the resource directory searched for the backend")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if runDev {
		cfg.DevMode = true
	}
	if runMetricsAddr != "" {
		cfg.MetricsAddr = runMetricsAddr
	}
	if runResourceDir != "" {
		cfg.ResourceDir = runResourceDir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", runConfigPath, err)
	}

	headless := runHeadless || !term.IsTerminal(int(os.Stdout.Fd()))

	logger, closer, err := logging.Setup(logging.Options{
		Level:       cfg.Log.Level,
		File:        cfg.Log.File,
		MaxSizeMB:   cfg.Log.MaxSizeMB,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAgeDays:  cfg.Log.MaxAgeDays,
		Interactive: !headless,
	})
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	var rec journal.Recorder = journal.Discard{}
	if cfg.Journal != "" {
		j, err := journal.Open(cfg.Journal)
		if err != nil {
			return err
		}
		defer j.Close()
		rec = j
	}

	opts := []supervisor.Option{
		supervisor.WithHealth(cfg.Health()),
		supervisor.WithJournal(rec),
		supervisor.WithResourceDir(cfg.ResourceDir),
	}
	if headless {
		opts = append(opts, supervisor.WithOutput(os.Stdout, os.Stderr))
	}

	rt := app.NewRuntime(app.Options{
		DevMode:    cfg.DevMode,
		Port:       cfg.Port,
		Supervisor: opts,
	})

	ctx := context.Background()

	if cfg.MetricsAddr != "" {
		srv := api.NewServer(rt.Supervisor())
		if err := srv.Listen(cfg.MetricsAddr); err != nil {
			return err
		}
		go func() {
			if err := srv.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("status endpoint error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	if headless {
		return app.RunHeadless(ctx, rt)
	}
	return app.RunTUI(ctx, rt)
}
