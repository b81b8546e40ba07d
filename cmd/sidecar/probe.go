package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/benaskins/sidecar/internal/config"
	"github.com/benaskins/sidecar/internal/health"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Poll the backend health endpoint once",
	Long:  "Run one readiness polling window against the backend and report whether it answered 200.",
	Args:  cobra.NoArgs,
	RunE:  runProbe,
}

var (
	probeConfigPath string
	probePort       int
	probePath       string
	probeTimeout    time.Duration
	probeInterval   time.Duration
)

func init() {
	probeCmd.Flags().StringVar(&probeConfigPath, "config", config.DefaultPath(), "Config file path")
	probeCmd.Flags().IntVar(&probePort, "port", 0, "Backend port (default from config, 8000)")
	probeCmd.Flags().StringVar(&probePath, "path", "", "Health path (default from config, /health)")
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 0, "Polling window (default from config, 15s)")
	probeCmd.Flags().DurationVar(&probeInterval, "interval", 0, "Delay between attempts (default from config, 250ms)")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(probeConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	hc := cfg.Health()
	if probePort > 0 {
		hc.Port = probePort
	}
	if probePath != "" {
		hc.Path = probePath
	}
	if probeTimeout > 0 {
		hc.Timeout = probeTimeout
	}
	if probeInterval > 0 {
		hc.Interval = probeInterval
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	fmt.Printf("probing http://127.0.0.1:%d%s for up to %s\n", hc.Port, hc.Path, hc.Timeout)
	res := health.Poll(ctx, hc, slog.With("component", "probe"))

	summary := fmt.Sprintf("after %d attempts in %s", res.Attempts, res.Elapsed.Round(time.Millisecond))
	switch res.Readiness {
	case health.ReadinessReady:
		fmt.Println(okStyle.Render("ready") + " " + summary)
		return nil
	case health.ReadinessTimedOut:
		fmt.Println(errStyle.Render("timed out") + " " + summary)
		return fmt.Errorf("backend not ready within %s", hc.Timeout)
	}
	fmt.Println(warnStyle.Render("interrupted") + " " + summary)
	return ctx.Err()
}
