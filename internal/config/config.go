// Package config provides configuration management for hanatv using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort         = 7000
	defaultServerTimeout      = 30 * time.Second
	defaultShutdownTimeout    = 10 * time.Second
	defaultBackendTimeout     = 15 * time.Second
	defaultTunerOpenTimeout   = 5 * time.Second
	defaultScanConcurrency    = 1
	defaultScanDebounce       = 500 * time.Millisecond
	defaultLiveIdleTimeout    = 10 * time.Minute
	defaultLiveOffAirTimeout  = 15 * time.Second
	defaultSegmentDuration    = 10 * time.Second
	defaultMaxEncoderRestarts = 10
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Live     LiveConfig     `mapstructure:"live"`
	Recorded RecordedConfig `mapstructure:"recorded"`
	Scan      ScanConfig      `mapstructure:"scan"`
	FFmpeg    FFmpegConfig    `mapstructure:"ffmpeg"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
// Only sqlite is supported: channel/program/recorded-file metadata is
// local to the machine running the tuner and encoder.
type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	LogLevel string `mapstructure:"log_level"` // silent, error, warn, info
}

// StorageConfig holds file storage configuration.
type StorageConfig struct {
	RecordedRoots []string `mapstructure:"recorded_roots"` // directories the scanner walks/watches
	TempDir       string   `mapstructure:"temp_dir"`        // scratch directory, scanned for orphaned hanatv-* dirs at startup
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// BackendConfig holds connection settings for the recorder-control backend
// (either an EDCB-compatible RPC daemon or the HTTP-based alternative).
type BackendConfig struct {
	Type           string        `mapstructure:"type"` // edcb, http
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	SocketPath     string        `mapstructure:"socket_path"` // unix socket / named pipe, used when Host is empty
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	TunerOpenRetry time.Duration `mapstructure:"tuner_open_retry"` // NwTVIDSetCh retry window, see internal/tuner.Registry
}

// LiveConfig holds live-streaming pipeline tuning.
type LiveConfig struct {
	MaxAliveTime       time.Duration `mapstructure:"max_alive_time"` // how long Idling may persist before Offline
	OffAirTimeout      time.Duration `mapstructure:"off_air_timeout"` // tuner silence duration before off-air classification
	MaxEncoderRestarts int           `mapstructure:"max_encoder_restarts"` // restart budget before permanent Offline
	FullHDChannels     []string      `mapstructure:"full_hd_channels"` // display_channel_id allowlist, see DESIGN.md
}

// RecordedConfig holds recorded-video HLS pipeline tuning.
type RecordedConfig struct {
	SegmentDuration time.Duration `mapstructure:"segment_duration"`
	LookAheadCount  int           `mapstructure:"look_ahead_count"` // encode-ahead distance before a segment request restarts the run
}

// ScanConfig holds recorded-file scanner tuning.
type ScanConfig struct {
	Concurrency   int           `mapstructure:"concurrency"` // default per-device concurrency for internal/iolimiter
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`
}

// SchedulerConfig holds cron schedules for the background EPG refresh and
// program garbage-collection jobs.
type SchedulerConfig struct {
	EPGRefreshCron     string        `mapstructure:"epg_refresh_cron"`
	ProgramGCCron      string        `mapstructure:"program_gc_cron"`
	ProgramGCRetention time.Duration `mapstructure:"program_gc_retention"` // how far past EndAt a program survives
}

// FFmpegConfig holds FFmpeg/HWEncC binary configuration.
type FFmpegConfig struct {
	BinaryPath      string   `mapstructure:"binary_path"`      // path to ffmpeg binary (empty = auto-detect)
	ProbePath       string   `mapstructure:"probe_path"`       // path to ffprobe binary (empty = auto-detect)
	TsreadexPath    string   `mapstructure:"tsreadex_path"`    // path to the tsreadex preprocessor (empty = auto-detect)
	HWAccelPriority []string `mapstructure:"hwaccel_priority"` // priority order: qsv, nvenc, vce, rkmpp, software

	// Per-backend binary path overrides for the hardware encoders named in
	// spec.md §4.F/§6. Empty means "look up on PATH", per
	// internal/liveencoder.SelectEncoder.
	QSVEncCPath  string `mapstructure:"qsvencc_path"`
	NVEncCPath   string `mapstructure:"nvencc_path"`
	VCEEncCPath  string `mapstructure:"vceencc_path"`
	RkmppencPath string `mapstructure:"rkmppenc_path"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with HANATV_ and use underscores for nesting.
// Example: HANATV_SERVER_PORT=7000.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/hanatv")
		v.AddConfigPath("$HOME/.hanatv")
	}

	v.SetEnvPrefix("HANATV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)

	v.SetDefault("database.dsn", "hanatv.db")
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("storage.recorded_roots", []string{"./recorded"})
	v.SetDefault("storage.temp_dir", "./tmp")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("backend.type", "edcb")
	v.SetDefault("backend.port", 4510)
	v.SetDefault("backend.connect_timeout", defaultBackendTimeout)
	v.SetDefault("backend.tuner_open_retry", defaultTunerOpenTimeout)

	v.SetDefault("live.max_alive_time", defaultLiveIdleTimeout)
	v.SetDefault("live.off_air_timeout", defaultLiveOffAirTimeout)
	v.SetDefault("live.max_encoder_restarts", defaultMaxEncoderRestarts)
	v.SetDefault("live.full_hd_channels", []string{})

	v.SetDefault("recorded.segment_duration", defaultSegmentDuration)
	v.SetDefault("recorded.look_ahead_count", 3)

	v.SetDefault("scan.concurrency", defaultScanConcurrency)
	v.SetDefault("scan.watch_debounce", defaultScanDebounce)

	v.SetDefault("ffmpeg.binary_path", "")
	v.SetDefault("ffmpeg.probe_path", "")
	v.SetDefault("ffmpeg.tsreadex_path", "tsreadex")
	v.SetDefault("ffmpeg.hwaccel_priority", []string{"qsv", "nvenc", "vce", "rkmpp", "software"})
	v.SetDefault("ffmpeg.qsvencc_path", "")
	v.SetDefault("ffmpeg.nvencc_path", "")
	v.SetDefault("ffmpeg.vceencc_path", "")
	v.SetDefault("ffmpeg.rkmppenc_path", "")

	v.SetDefault("scheduler.epg_refresh_cron", "0 */6 * * *")
	v.SetDefault("scheduler.program_gc_cron", "0 * * * *")
	v.SetDefault("scheduler.program_gc_retention", time.Hour)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	validBackends := map[string]bool{"edcb": true, "http": true}
	if !validBackends[c.Backend.Type] {
		return fmt.Errorf("backend.type must be one of: edcb, http")
	}

	if len(c.Storage.RecordedRoots) == 0 {
		return fmt.Errorf("storage.recorded_roots must contain at least one path")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
