// Package cli implements the mixnote command line interface.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mixnote/mixnote/internal/config"
)

var (
	cfgDir string

	// Build information - set at build time via ldflags
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "mixnote",
	Short: "Scrub audio mixes and pin timestamped markers on them",
	Long: `mixnote is a terminal session for reviewing audio mixes. It drives a
local mpv process for playback and keeps timestamped markers (notes, mix
fixes, tasks, ideas, issues) on a remote or local store.

Quick Start:
  mixnote list              # List recordings in the configured store
  mixnote open 3            # Open recording 3 for scrubbing
  mixnote doctor            # Check player, store and config health

Inside a session: space plays/pauses, m drops a marker at the playhead,
n/p jump between markers, click and drag markers on the timeline.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", ".", "directory containing mixnote.cfg.json")

	rootCmd.AddCommand(
		newOpenCmd(),
		newListCmd(),
		newDoctorCmd(),
		newVersionCmd(),
	)
}

// loadConfig reads the config file from the --config directory. A missing
// file is not fatal; the viper defaults cover a local memory-backed session.
func loadConfig() error {
	return config.Load(cfgDir)
}

func logLevel() string {
	return viper.GetString("logLevel")
}
