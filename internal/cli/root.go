package cli

import (
	"context"
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/khurrambhutto/scope/internal/config"
	"github.com/khurrambhutto/scope/internal/tui"
	"github.com/khurrambhutto/scope/internal/updater"
)

var (
	runUpdate   bool
	checkUpdate bool
)

var rootCmd = &cobra.Command{
	Use:   "scope",
	Short: "Browse and manage installed Linux packages",
	Long: `scope unifies APT, Snap, Flatpak and AppImage packages into one
live inventory. Search, sort, uninstall and update from a single view.`,
	Version:      updater.Version,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("config: %v", err)
		}

		up := updater.New(cfg.Update.Repo)
		if runUpdate {
			return up.Run(cmd.Context())
		}
		if checkUpdate {
			return reportUpdate(cmd.Context(), up)
		}

		app := tui.New(cfg)
		defer app.Close()

		p := tea.NewProgram(app, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("tui: %w", err)
		}
		return nil
	},
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().BoolVar(&runUpdate, "update", false, "download and install the latest release, then exit")
	rootCmd.Flags().BoolVar(&checkUpdate, "check-update", false, "report whether a newer release exists, then exit")
	rootCmd.SetVersionTemplate("scope {{.Version}}\n")
}

func reportUpdate(ctx context.Context, up *updater.Updater) error {
	tag, err := up.CheckAvailable(ctx)
	if err != nil {
		return err
	}
	if tag == "" {
		fmt.Printf("scope %s is up to date\n", updater.Version)
		return nil
	}
	fmt.Printf("scope %s available (current %s), run scope --update\n", tag, updater.Version)
	return nil
}
