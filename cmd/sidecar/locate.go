package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/benaskins/sidecar/internal/locate"
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Show where the backend binary is looked for",
	Long:  "List the candidate locations for the backend binary in priority order and mark the one that would be launched.",
	Args:  cobra.NoArgs,
	RunE:  runLocate,
}

var (
	locateResourceDir string
	locateWait        bool
	locateTimeout     time.Duration
)

func init() {
	locateCmd.Flags().StringVar(&locateResourceDir, "resource-dir", "", "Override the resource directory")
	locateCmd.Flags().BoolVar(&locateWait, "wait", false, "Wait for the binary to appear if none exists yet")
	locateCmd.Flags().DurationVar(&locateTimeout, "timeout", 2*time.Minute, "How long --wait waits")
	rootCmd.AddCommand(locateCmd)
}

func runLocate(cmd *cobra.Command, args []string) error {
	dirs := locate.Host(locateResourceDir)
	candidates := locate.Candidates(runtime.GOOS, dirs)
	selected, found := locate.First(candidates)

	fmt.Println(boldStyle.Render("Candidates for " + locate.BinaryName(runtime.GOOS)))
	for i, c := range candidates {
		switch {
		case found && c == selected:
			fmt.Printf("  %d. %s %s %s\n", i+1, okStyle.Render("✓"), c, mutedStyle.Render("(selected)"))
		case fileExists(c):
			fmt.Printf("  %d. %s %s\n", i+1, okStyle.Render("✓"), c)
		default:
			fmt.Printf("  %d. %s %s\n", i+1, errStyle.Render("✗"), mutedStyle.Render(c))
		}
	}
	if len(candidates) == 0 {
		fmt.Println(warnStyle.Render("  no base directories could be determined"))
	}

	if found {
		return nil
	}
	if !locateWait {
		return fmt.Errorf("backend sidecar not found")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, locateTimeout)
	defer cancelTimeout()

	fmt.Println(mutedStyle.Render("waiting for the backend binary..."))
	path, err := locate.Wait(ctx, candidates, slog.With("component", "locate"))
	if err != nil {
		return fmt.Errorf("waiting for backend binary: %w", err)
	}
	fmt.Printf("%s %s\n", okStyle.Render("found"), path)
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
