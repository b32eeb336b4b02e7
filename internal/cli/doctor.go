package cli

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mixnote/mixnote/internal/config"
	"github.com/mixnote/mixnote/internal/repository"
	"github.com/mixnote/mixnote/internal/repository/api"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check player, store and config health",
		Long: `Validates the pieces a scrubbing session depends on:

  - Config file presence
  - Player binary on PATH
  - Storage backend reachability

Run this before opening a session to diagnose setup problems.`,
		RunE: runDoctor,
	}
}

type check struct {
	name    string
	status  string // "ok", "warn", "fail"
	message string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	var checks []check

	if err := loadConfig(); err != nil {
		checks = append(checks, check{"config", "warn", fmt.Sprintf("no config file in %s, defaults apply", cfgDir)})
	} else {
		checks = append(checks, check{"config", "ok", viper.ConfigFileUsed()})
	}

	playerCfg := config.GetPlayerConfig()
	if path, err := exec.LookPath(playerCfg.Binary); err != nil {
		checks = append(checks, check{"player", "fail", fmt.Sprintf("%s not found on PATH", playerCfg.Binary)})
	} else {
		checks = append(checks, check{"player", "ok", path})
	}

	checks = append(checks, storageCheck())

	failed := false
	for _, c := range checks {
		var badge string
		switch c.status {
		case "ok":
			badge = okStyle.Render("✓")
		case "warn":
			badge = warnStyle.Render("!")
		default:
			badge = failStyle.Render("✗")
			failed = true
		}
		fmt.Fprintf(cmd.OutOrStdout(), " %s %-8s %s\n", badge, c.name, c.message)
	}

	if failed {
		return fmt.Errorf("some checks failed")
	}
	return nil
}

func storageCheck() check {
	storageCfg := config.GetStorageConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch storageCfg.Type {
	case "api":
		client := api.New(storageCfg.API.ServerURL, storageCfg.API.APIKey)
		if err := client.Healthcheck(ctx); err != nil {
			return check{"storage", "fail", fmt.Sprintf("api %s: %v", storageCfg.API.ServerURL, err)}
		}
		return check{"storage", "ok", fmt.Sprintf("api %s", storageCfg.API.ServerURL)}
	case "local":
		backend, err := repository.New(storageCfg, zerolog.Nop())
		if err != nil {
			return check{"storage", "fail", err.Error()}
		}
		if err := backend.Init(); err != nil {
			return check{"storage", "fail", err.Error()}
		}
		defer backend.Close()
		return check{"storage", "ok", "local database reachable"}
	case "memory":
		return check{"storage", "ok", "memory (nothing persists)"}
	default:
		return check{"storage", "fail", fmt.Sprintf("unknown storage type %q", storageCfg.Type)}
	}
}
