// internal/repository/local/local.go
package local

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mixnote/mixnote/internal/config"
	"github.com/mixnote/mixnote/internal/model"
)

// Manager is a persistence backend on a local or team database. It connects
// to Postgres when reachable and falls back to a SQLite file otherwise, so a
// session never loses annotation work to a down database.
type Manager struct {
	DB              *gorm.DB
	ShouldSaveLocal bool
	Logger          zerolog.Logger

	cfg config.LocalConfig
}

// New creates a new local database backend.
func New(cfg config.LocalConfig, log zerolog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		Logger: log,
	}
}

// Init establishes a database connection and migrates the schema.
func (m *Manager) Init() error {
	var err error

	m.DB, err = m.openPostgres()
	if err != nil {
		m.Logger.Error().Err(err).Msg("Failed to connect to Postgres, falling back to SQLite")
		m.ShouldSaveLocal = true
		m.DB, err = m.openSqlite()
		if err != nil {
			return fmt.Errorf("failed to open local SQLite DB: %w", err)
		}
	}

	sqlDB, err := m.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil && !m.ShouldSaveLocal {
		m.Logger.Error().Err(err).Msg("Failed to validate connection, falling back to SQLite")
		m.ShouldSaveLocal = true
		m.DB, err = m.openSqlite()
		if err != nil {
			return fmt.Errorf("failed to open local SQLite DB: %w", err)
		}
	}

	if m.ShouldSaveLocal {
		err = m.DB.AutoMigrate(model.DatabaseModelsSQLite...)
	} else {
		err = m.DB.AutoMigrate(model.DatabaseModels...)
	}
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	m.Logger.Info().Bool("sqlite", m.ShouldSaveLocal).Msg("Database ready")
	return nil
}

// Close closes the underlying connection pool.
func (m *Manager) Close() error {
	if m.DB == nil {
		return nil
	}
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (m *Manager) openPostgres() (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		m.cfg.Host,
		m.cfg.Port,
		m.cfg.Username,
		m.cfg.Password,
		m.cfg.Database,
	)

	m.Logger.Debug().Msgf("Connecting to Postgres DB at '%s'", dsn)

	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

func (m *Manager) openSqlite() (*gorm.DB, error) {
	path := m.cfg.SqlitePath
	if path == "" {
		path = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// set PRAGMAS
	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	m.Logger.Info().Str("path", path).Msg("Using local SQLite DB")
	return db, nil
}

// GetRecording fetches a recording by id.
func (m *Manager) GetRecording(ctx context.Context, id uint) (model.Recording, error) {
	var rec model.Recording
	err := m.DB.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Recording{}, fmt.Errorf("recording %d not found", id)
	}
	return rec, err
}

// ListRecordings returns all recordings ordered by creation time.
func (m *Manager) ListRecordings(ctx context.Context) ([]model.Recording, error) {
	var recs []model.Recording
	err := m.DB.WithContext(ctx).Order("created_at").Find(&recs).Error
	return recs, err
}

// ListMarkers returns a recording's markers ascending by timestamp.
func (m *Manager) ListMarkers(ctx context.Context, recordingID uint) ([]model.Marker, error) {
	var markers []model.Marker
	err := m.DB.WithContext(ctx).
		Where("recording_id = ?", recordingID).
		Order("timestamp_seconds").
		Find(&markers).Error
	return markers, err
}

// CreateMarker inserts a marker; gorm assigns the id to the passed pointer.
func (m *Manager) CreateMarker(ctx context.Context, marker *model.Marker) error {
	return m.DB.WithContext(ctx).Create(marker).Error
}

// UpdateMarker applies a partial update and returns the stored row.
func (m *Manager) UpdateMarker(ctx context.Context, id uint, patch model.MarkerPatch) (model.Marker, error) {
	var marker model.Marker
	err := m.DB.WithContext(ctx).First(&marker, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Marker{}, fmt.Errorf("marker %d not found", id)
	}
	if err != nil {
		return model.Marker{}, err
	}

	patch.Apply(&marker)
	if err := m.DB.WithContext(ctx).Save(&marker).Error; err != nil {
		return model.Marker{}, err
	}
	return marker, nil
}

// DeleteMarker removes a marker row.
func (m *Manager) DeleteMarker(ctx context.Context, id uint) error {
	res := m.DB.WithContext(ctx).Delete(&model.Marker{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("marker %d not found", id)
	}
	return nil
}

// CreateTask inserts a task; gorm assigns the id to the passed pointer.
func (m *Manager) CreateTask(ctx context.Context, t *model.Task) error {
	return m.DB.WithContext(ctx).Create(t).Error
}
