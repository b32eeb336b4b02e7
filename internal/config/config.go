package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// StorageConfig selects and parameterizes the persistence backend.
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	API    APIConfig    `json:"api" mapstructure:"api"`
	Local  LocalConfig  `json:"local" mapstructure:"local"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
}

// APIConfig holds remote CRUD API settings.
type APIConfig struct {
	ServerURL string `json:"serverUrl" mapstructure:"serverUrl"`
	APIKey    string `json:"apiKey" mapstructure:"apiKey"`
}

// LocalConfig holds local database backend settings.
type LocalConfig struct {
	Host       string `json:"host" mapstructure:"host"`
	Port       string `json:"port" mapstructure:"port"`
	Username   string `json:"username" mapstructure:"username"`
	Password   string `json:"password" mapstructure:"password"`
	Database   string `json:"database" mapstructure:"database"`
	SqlitePath string `json:"sqlitePath" mapstructure:"sqlitePath"`
}

// MemoryConfig holds in-memory backend settings.
type MemoryConfig struct {
	Seed bool `json:"seed" mapstructure:"seed"`
}

// PlayerConfig holds media device settings.
type PlayerConfig struct {
	Binary    string `json:"binary" mapstructure:"binary"`
	SocketDir string `json:"socketDir" mapstructure:"socketDir"`
	RefreshHz int    `json:"refreshHz" mapstructure:"refreshHz"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// Load reads configuration from the JSON config file and sets default
// values. configDir is the directory containing the config file.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./mixnotelogs")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.api.serverUrl", "http://localhost:5000")
	viper.SetDefault("storage.api.apiKey", "")
	viper.SetDefault("storage.local.host", "localhost")
	viper.SetDefault("storage.local.port", "5432")
	viper.SetDefault("storage.local.username", "postgres")
	viper.SetDefault("storage.local.password", "postgres")
	viper.SetDefault("storage.local.database", "mixnote")
	viper.SetDefault("storage.local.sqlitePath", "./mixnote.db")
	viper.SetDefault("storage.memory.seed", false)

	viper.SetDefault("player.binary", "mpv")
	viper.SetDefault("player.socketDir", "")
	viper.SetDefault("player.refreshHz", 5)

	viper.SetDefault("timeline.maxZoom", 200.0)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "mixnote-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "mixnote")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetConfigName("mixnote.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat64 returns a float config value.
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// GetStorageConfig returns the typed storage configuration.
func GetStorageConfig() StorageConfig {
	var cfg StorageConfig
	cfg.Type = viper.GetString("storage.type")
	cfg.API.ServerURL = viper.GetString("storage.api.serverUrl")
	cfg.API.APIKey = viper.GetString("storage.api.apiKey")
	cfg.Local.Host = viper.GetString("storage.local.host")
	cfg.Local.Port = viper.GetString("storage.local.port")
	cfg.Local.Username = viper.GetString("storage.local.username")
	cfg.Local.Password = viper.GetString("storage.local.password")
	cfg.Local.Database = viper.GetString("storage.local.database")
	cfg.Local.SqlitePath = viper.GetString("storage.local.sqlitePath")
	cfg.Memory.Seed = viper.GetBool("storage.memory.seed")
	return cfg
}

// GetPlayerConfig returns the typed media device configuration.
// The refresh rate is bounded to 4..10 Hz; annotation work does not need
// sample-accurate position reporting.
func GetPlayerConfig() PlayerConfig {
	cfg := PlayerConfig{
		Binary:    viper.GetString("player.binary"),
		SocketDir: viper.GetString("player.socketDir"),
		RefreshHz: viper.GetInt("player.refreshHz"),
	}
	if cfg.RefreshHz < 4 {
		cfg.RefreshHz = 4
	}
	if cfg.RefreshHz > 10 {
		cfg.RefreshHz = 10
	}
	return cfg
}

// GetOTelConfig returns the typed OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}
