package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvConfigFile     = "SCHEDULER_CONFIG_FILE"
	EnvDotenvFile     = "SCHEDULER_ENV_FILE"
	EnvHTTPPort       = "SCHEDULER_HTTP_PORT"
	EnvSQLitePath     = "SCHEDULER_SQLITE_PATH"
	EnvLogLevel       = "SCHEDULER_LOG_LEVEL"
	EnvGridStartHour  = "SCHEDULER_GRID_START_HOUR"
	EnvGridEndHour    = "SCHEDULER_GRID_END_HOUR"
	EnvHorizonMonths  = "SCHEDULER_RECURRENCE_HORIZON_MONTHS"
	EnvMaxDrafts      = "SCHEDULER_MAX_RECURRENCE_DRAFTS"
	EnvEditorTTL      = "SCHEDULER_EDITOR_TTL"
	EnvEditorCapacity = "SCHEDULER_EDITOR_CAPACITY"
	EnvAPITokenHash   = "SCHEDULER_API_TOKEN_HASH"
)

const (
	defaultDotenvFile = ".env"
	defaultSQLitePath = "data/scheduler.db"
	defaultLogLevel   = "info"
	defaultHTTPPort   = 8080
	defaultGridStart  = 8
	defaultGridEnd    = 22
	defaultHorizon    = 1
	maxHorizonMonths  = 12
	defaultMaxDrafts  = 400
	defaultEditorTTL  = 30 * time.Minute
	defaultEditorCap  = 256
)

// Config captures the settings of the scheduler service.
type Config struct {
	HTTPPort   int
	SQLitePath string
	LogLevel   string

	GridStartHour int
	GridEndHour   int

	DefaultHorizonMonths int
	MaxRecurrenceDrafts  int

	EditorTTL      time.Duration
	EditorCapacity int

	// APITokenHash is a bcrypt hash of the bearer token. Empty disables the check.
	APITokenHash string
}

// fileConfig mirrors the optional YAML file. Pointers distinguish an absent
// key from a zero value.
type fileConfig struct {
	HTTP struct {
		Port *int `yaml:"port"`
	} `yaml:"http"`
	SQLite struct {
		Path *string `yaml:"path"`
	} `yaml:"sqlite"`
	Log struct {
		Level *string `yaml:"level"`
	} `yaml:"log"`
	Grid struct {
		StartHour *int `yaml:"start_hour"`
		EndHour   *int `yaml:"end_hour"`
	} `yaml:"grid"`
	Sessions struct {
		DefaultHorizonMonths *int `yaml:"default_horizon_months"`
		MaxRecurrenceDrafts  *int `yaml:"max_recurrence_drafts"`
	} `yaml:"sessions"`
	Editors struct {
		TTL      *string `yaml:"ttl"`
		Capacity *int    `yaml:"capacity"`
	} `yaml:"editors"`
	Auth struct {
		APITokenHash *string `yaml:"api_token_hash"`
	} `yaml:"auth"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		HTTPPort:             defaultHTTPPort,
		SQLitePath:           defaultSQLitePath,
		LogLevel:             defaultLogLevel,
		GridStartHour:        defaultGridStart,
		GridEndHour:          defaultGridEnd,
		DefaultHorizonMonths: defaultHorizon,
		MaxRecurrenceDrafts:  defaultMaxDrafts,
		EditorTTL:            defaultEditorTTL,
		EditorCapacity:       defaultEditorCap,
	}
}

// Load builds the configuration from defaults, the YAML file named by
// SCHEDULER_CONFIG_FILE and the process environment, in increasing order of
// precedence. A .env file (or SCHEDULER_ENV_FILE) is loaded into the
// environment first without overriding variables that are already set.
//
// Invalid values are reported together in one localized error.
func Load() (Config, error) {
	if err := loadDotenv(); err != nil {
		return Config{}, err
	}

	cfg := Defaults()
	invalid := make([]string, 0, 2)
	missing := make([]string, 0, 1)

	if path := strings.TrimSpace(os.Getenv(EnvConfigFile)); path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		file.apply(&cfg)
	}

	envInt(EnvHTTPPort, &cfg.HTTPPort, &invalid)
	envString(EnvSQLitePath, &cfg.SQLitePath)
	envString(EnvLogLevel, &cfg.LogLevel)
	envInt(EnvGridStartHour, &cfg.GridStartHour, &invalid)
	envInt(EnvGridEndHour, &cfg.GridEndHour, &invalid)
	envInt(EnvHorizonMonths, &cfg.DefaultHorizonMonths, &invalid)
	envInt(EnvMaxDrafts, &cfg.MaxRecurrenceDrafts, &invalid)
	envInt(EnvEditorCapacity, &cfg.EditorCapacity, &invalid)
	envString(EnvAPITokenHash, &cfg.APITokenHash)
	if value := strings.TrimSpace(os.Getenv(EnvEditorTTL)); value != "" {
		if ttl, err := time.ParseDuration(value); err != nil {
			invalid = append(invalid, EnvEditorTTL)
		} else {
			cfg.EditorTTL = ttl
		}
	}

	if strings.TrimSpace(cfg.SQLitePath) == "" {
		missing = append(missing, EnvSQLitePath)
	}
	invalid = append(invalid, cfg.validate(invalid)...)

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("не заданы обязательные настройки: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("некорректные значения настроек: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

// validate reports keys whose final values are out of range. Keys already in
// reported are skipped.
func (c Config) validate(reported []string) []string {
	seen := make(map[string]bool, len(reported))
	for _, key := range reported {
		seen[key] = true
	}
	var invalid []string
	flag := func(key string, bad bool) {
		if bad && !seen[key] {
			seen[key] = true
			invalid = append(invalid, key)
		}
	}

	flag(EnvHTTPPort, c.HTTPPort <= 0 || c.HTTPPort > 65535)
	flag(EnvLogLevel, !validLogLevel(c.LogLevel))
	gridBad := c.GridStartHour < 0 || c.GridEndHour > 24 || c.GridStartHour >= c.GridEndHour
	flag(EnvGridStartHour, gridBad)
	flag(EnvGridEndHour, gridBad)
	flag(EnvHorizonMonths, c.DefaultHorizonMonths < 1 || c.DefaultHorizonMonths > maxHorizonMonths)
	flag(EnvMaxDrafts, c.MaxRecurrenceDrafts <= 0)
	flag(EnvEditorTTL, c.EditorTTL <= 0)
	flag(EnvEditorCapacity, c.EditorCapacity <= 0)
	if hash := strings.TrimSpace(c.APITokenHash); hash != "" {
		_, err := bcrypt.Cost([]byte(hash))
		flag(EnvAPITokenHash, err != nil)
	}
	return invalid
}

func validLogLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

func loadDotenv() error {
	path := strings.TrimSpace(os.Getenv(EnvDotenvFile))
	explicit := path != ""
	if !explicit {
		path = defaultDotenvFile
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("не удалось загрузить файл окружения %s: %w", path, err)
	}
	return nil
}

func readFile(path string) (fileConfig, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("не удалось прочитать файл настроек: %w", err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(buf, &file); err != nil {
		return fileConfig{}, fmt.Errorf("не удалось разобрать файл настроек: %w", err)
	}
	return file, nil
}

func (f fileConfig) apply(cfg *Config) {
	setInt(f.HTTP.Port, &cfg.HTTPPort)
	setString(f.SQLite.Path, &cfg.SQLitePath)
	setString(f.Log.Level, &cfg.LogLevel)
	setInt(f.Grid.StartHour, &cfg.GridStartHour)
	setInt(f.Grid.EndHour, &cfg.GridEndHour)
	setInt(f.Sessions.DefaultHorizonMonths, &cfg.DefaultHorizonMonths)
	setInt(f.Sessions.MaxRecurrenceDrafts, &cfg.MaxRecurrenceDrafts)
	setInt(f.Editors.Capacity, &cfg.EditorCapacity)
	setString(f.Auth.APITokenHash, &cfg.APITokenHash)
	if f.Editors.TTL != nil {
		// An unparsable TTL surfaces as invalid through validate.
		ttl, err := time.ParseDuration(strings.TrimSpace(*f.Editors.TTL))
		if err != nil {
			ttl = 0
		}
		cfg.EditorTTL = ttl
	}
}

func setInt(value *int, target *int) {
	if value != nil {
		*target = *value
	}
}

func setString(value *string, target *string) {
	if value != nil {
		*target = strings.TrimSpace(*value)
	}
}

func envString(key string, target *string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*target = value
	}
}

func envInt(key string, target *int, invalid *[]string) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		*invalid = append(*invalid, key)
		return
	}
	*target = parsed
}
