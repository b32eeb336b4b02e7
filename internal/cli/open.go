package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/mixnote/mixnote/internal/config"
	"github.com/mixnote/mixnote/internal/dispatch"
	"github.com/mixnote/mixnote/internal/editor"
	"github.com/mixnote/mixnote/internal/logging"
	"github.com/mixnote/mixnote/internal/markers"
	"github.com/mixnote/mixnote/internal/metrics"
	"github.com/mixnote/mixnote/internal/model"
	"github.com/mixnote/mixnote/internal/nav"
	intOtel "github.com/mixnote/mixnote/internal/otel"
	"github.com/mixnote/mixnote/internal/playback"
	"github.com/mixnote/mixnote/internal/playback/mpv"
	"github.com/mixnote/mixnote/internal/repository"
	"github.com/mixnote/mixnote/internal/repository/memory"
	"github.com/mixnote/mixnote/internal/session"
	"github.com/mixnote/mixnote/internal/tasks"
	"github.com/mixnote/mixnote/internal/timeline"
	"github.com/mixnote/mixnote/internal/tui"
)

func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <recording-id>",
		Short: "Open a recording for scrubbing and annotation",
		Long: `Opens a scrubbing session on the given recording: starts a paused mpv
process, loads the recording's markers from the configured store, and
hands the terminal over to the session UI until you quit.`,
		Args: cobra.ExactArgs(1),
		RunE: runOpen,
	}
}

func runOpen(cmd *cobra.Command, args []string) error {
	recordingID, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("recording id must be a number: %q", args[0])
	}

	sessionStart := time.Now()

	slogMgr := logging.NewSlogManager()
	log := slogMgr.Logger()

	if err := loadConfig(); err != nil {
		log.Warn("Failed to load config, using defaults", "error", err)
	}

	// Session log file. The TUI owns the terminal, so everything logs here.
	logsDir := viper.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
	}
	logPath := logging.LogFilePath(logsDir, "mixnote", sessionStart)
	logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}
	defer logFile.Close()

	// OTel provider if enabled (after the log file exists)
	var otelProvider *intOtel.Provider
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		otelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			log.Error("Failed to initialize OTel provider", "error", err)
		}
	}

	if viper.GetBool("graylog.enabled") {
		if err := slogMgr.EnableGelf(viper.GetString("graylog.address")); err != nil {
			log.Warn("Failed to connect GELF writer", "error", err)
		}
	}

	// Dynamic context: every record carries the open recording.
	sess := session.NewContext()
	slogMgr.WithContext(func() []slog.Attr {
		rec := sess.GetRecording()
		return []slog.Attr{
			slog.Uint64("recordingId", uint64(rec.ID)),
			slog.String("recording", rec.Title),
		}
	})

	var otelLogProvider *sdklog.LoggerProvider
	if otelProvider != nil {
		otelLogProvider = otelProvider.LoggerProvider()
	}
	slogMgr.Setup(logFile, logLevel(), otelLogProvider)
	log = slogMgr.Logger()
	log.Info("Session starting", "logPath", logPath, "version", Version)

	zlog := zerolog.New(logFile).With().Timestamp().Logger()

	// Storage backend
	backend, err := repository.New(config.GetStorageConfig(), zlog)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	defer backend.Close()

	if mem, ok := backend.(*memory.Backend); ok && config.GetStorageConfig().Memory.Seed {
		seedDemoData(mem)
		log.Info("Seeded demo data into memory backend")
	}

	ctx := context.Background()
	rec, err := backend.GetRecording(ctx, uint(recordingID))
	if err != nil {
		return fmt.Errorf("recording %d: %w", recordingID, err)
	}

	// Playback device and engine
	playerCfg := config.GetPlayerConfig()
	device, err := mpv.Start(playerCfg.Binary, playerCfg.SocketDir, log)
	if err != nil {
		return fmt.Errorf("failed to start player: %w", err)
	}

	engine := playback.NewEngine(device, playerCfg.RefreshHz, log)
	defer engine.Close()
	if err := engine.Load(rec); err != nil {
		return fmt.Errorf("failed to load %s: %w", rec.Path, err)
	}
	duration := engine.Current().DurationSeconds

	// Annotation components
	store := markers.NewStore(backend, log)
	if err := store.Load(ctx, rec.ID, duration); err != nil {
		return fmt.Errorf("failed to load markers: %w", err)
	}

	ed := editor.New(store, log)
	mapper := timeline.NewMapper(duration, 80, config.GetFloat64("timeline.maxZoom"))
	converter := tasks.NewConverter(backend, store, log)
	sess.SetRecording(&rec)
	ctrl := nav.NewController(engine, store, ed, mapper, converter, sess, log)

	dispatcher, err := dispatch.New(logging.NewDispatcherLogger(zlog))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	ctrl.RegisterCommands(dispatcher)
	defer dispatcher.Close()

	// Session stats sink
	var statsSink *metrics.Manager
	if viper.GetBool("influx.enabled") {
		statsSink = metrics.NewManager(zlog, logging.LogFilePath(logsDir, "mixnote-stats", sessionStart)+".gz")
		if err := statsSink.Connect(); err != nil {
			log.Warn("Session stats sink unavailable", "error", err)
			statsSink = nil
		}
	}

	program := tea.NewProgram(
		tui.New(engine, store, ed, mapper, ctrl, dispatcher, sess, playerCfg.RefreshHz, log),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, runErr := program.Run()

	// Teardown: stats first, then flush the telemetry pipeline.
	stats := sess.GetStats()
	log.Info("Session ended",
		"duration", time.Since(stats.Started).Round(time.Second),
		"markersCreated", stats.MarkersCreated,
		"markersMoved", stats.MarkersMoved,
		"markersDeleted", stats.MarkersDeleted,
		"tasksConverted", stats.TasksConverted,
		"seeks", stats.Seeks,
	)
	if statsSink != nil {
		if err := statsSink.WriteSessionStats(ctx, &rec, stats); err != nil {
			log.Warn("Failed to write session stats", "error", err)
		}
		statsSink.Close()
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := slogMgr.Flush(flushCtx); err != nil {
		log.Warn("Failed to flush logs", "error", err)
	}
	if otelProvider != nil {
		if err := otelProvider.Shutdown(flushCtx); err != nil {
			log.Warn("Failed to shut down OTel provider", "error", err)
		}
	}

	return runErr
}

// seedDemoData loads a throwaway recording with a few markers so the UI can
// be exercised without a store or real audio files.
func seedDemoData(mem *memory.Backend) {
	rec := mem.AddRecording(model.Recording{
		Title:           "demo-bounce-v1",
		Path:            "demo.wav",
		DurationSeconds: 240,
	})
	ctx := context.Background()
	for _, m := range []model.Marker{
		{RecordingID: rec.ID, TimestampSeconds: 12, Type: model.MarkerNote, Text: "intro too quiet"},
		{RecordingID: rec.ID, TimestampSeconds: 64.5, Type: model.MarkerMix, Text: "vocal sibilance"},
		{RecordingID: rec.ID, TimestampSeconds: 131, Type: model.MarkerIssue, Text: "click in left channel"},
		{RecordingID: rec.ID, TimestampSeconds: 198, Type: model.MarkerIdea, Text: "double the outro pad"},
	} {
		marker := m
		_ = mem.CreateMarker(ctx, &marker)
	}
}
