package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mixnote/mixnote/internal/config"
	"github.com/mixnote/mixnote/internal/repository"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recordings in the configured store",
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: no config file found, using defaults")
	}

	backend, err := repository.New(config.GetStorageConfig(), zerolog.Nop())
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	defer backend.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	recordings, err := backend.ListRecordings(ctx)
	if err != nil {
		return err
	}
	if len(recordings) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No recordings found.")
		return nil
	}

	for _, rec := range recordings {
		mins := int(rec.DurationSeconds) / 60
		secs := int(rec.DurationSeconds) % 60
		fmt.Fprintf(cmd.OutOrStdout(), "%4d  %02d:%02d  %s\n", rec.ID, mins, secs, rec.Title)
	}
	return nil
}
