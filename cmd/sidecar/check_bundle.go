package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/benaskins/sidecar/internal/locate"
)

var checkBundleCmd = &cobra.Command{
	Use:   "check-bundle [resource-dir]",
	Short: "Check that a release bundle ships the backend binary",
	Long: "Warn when binaries/backend-server is missing from the resource directory of a release build. " +
		"The check only ever warns; packaging continues either way.",
	Args: cobra.MaximumNArgs(1),
	RunE: runCheckBundle,
}

var checkBundleProfile string

func init() {
	checkBundleCmd.Flags().StringVar(&checkBundleProfile, "profile", "release", "Build profile (the check only runs for release)")
	rootCmd.AddCommand(checkBundleCmd)
}

func runCheckBundle(cmd *cobra.Command, args []string) error {
	if checkBundleProfile != "release" {
		fmt.Println(warnStyle.Render("warning:") + " development profile, backend binary check skipped")
		fmt.Println(warnStyle.Render("warning:") + " start the backend manually before running the application")
		return nil
	}

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	binary := filepath.Join(dir, "binaries", locate.BaseName)

	if _, err := os.Stat(binary); err != nil {
		fmt.Println(warnStyle.Render("warning:") + " backend binary not found at " + binary)
		fmt.Println(warnStyle.Render("warning:") + " build the backend before packaging a release")
		return nil
	}
	fmt.Println(okStyle.Render("ok") + " backend binary found at " + binary)
	return nil
}
