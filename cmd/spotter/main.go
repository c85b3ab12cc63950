package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"fleetspotter/internal/config"
	"fleetspotter/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string
	workspace  string
	chainFile  string
	rosterFile string
	timeout    time.Duration
	plain      bool

	// Loaded in PersistentPreRunE
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "spotter",
	Short: "Fleet Boss Battle trait spotter",
	Long: `spotter narrows down which crew can solve each node of a Fleet Boss
Battle combo chain, and which hidden traits they imply.

Point it at a chain export and a crew roster:

  spotter solve --chain boss.json --roster crew.yaml

Solves, attempts and ignored traits are stored per chain and can be shared
with other players through a collaboration room.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = filepath.Join(workspaceDir(), config.DefaultPath)
		}
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", path, err)
		}
		cfg = loaded

		opts := cfg.Logging.Options(workspaceDir())
		if verbose {
			opts.Level = "debug"
			opts.DebugMode = true
		}
		if err := logging.Initialize(opts); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.Boot("config loaded from %s (mode %s)", path, cfg.Preferences.Mode)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <workspace>/"+config.DefaultPath+")")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&chainFile, "chain", "c", "", "Chain export (JSON)")
	rootCmd.PersistentFlags().StringVarP(&rosterFile, "roster", "r", "", "Crew roster (YAML or JSON)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "Disable colors")

	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(chainsCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(attemptCmd)
	rootCmd.AddCommand(ignoreCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(collabCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func workspaceDir() string {
	if workspace != "" {
		return workspace
	}
	ws, err := os.Getwd()
	if err != nil {
		return "."
	}
	return ws
}

// resolvePath anchors relative paths at the workspace.
func resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workspaceDir(), p)
}
