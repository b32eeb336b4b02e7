// internal/repository/factory.go
package repository

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mixnote/mixnote/internal/config"
	"github.com/mixnote/mixnote/internal/repository/api"
	"github.com/mixnote/mixnote/internal/repository/local"
	"github.com/mixnote/mixnote/internal/repository/memory"
)

// New creates a persistence backend based on configuration.
func New(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "api":
		return api.New(cfg.API.ServerURL, cfg.API.APIKey), nil
	case "local":
		return local.New(cfg.Local, log), nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
