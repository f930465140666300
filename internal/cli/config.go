package cli

import (
	"github.com/denismitr/micromigrate/migration"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
	"io/ioutil"
	"os"
	"strings"
)

const (
	DefaultConfigFile = "micromigrate.yaml"

	BackendSqlite = "sqlite"
	BackendScript = "script"
)

var (
	ErrConfigExists        = errors.New("config file already exists")
	ErrInvalidConfig       = errors.New("invalid micromigrate configuration")
	ErrUnsupportedVersion  = errors.New("unsupported config version")
	ErrUnsupportedBackend  = errors.New("unsupported backend")
	ErrUnsupportedDriver   = errors.New("unsupported sqlite driver")
	supportedConfigVersion = "1"
)

const configFileStub = `version: "1"
migrations:
  local_folder: ./migrations
  # path to the sqlite database or %%ENV_NAME%% to read it from the environment
  database: ./app.db
  # sqlite runs the migrations in process, script pipes them into the sqlite3 client
  backend: sqlite
  # sqlite3 or sqlite, used by the sqlite backend
  driver: sqlite3
  table: micromigrate_migrations
`

type (
	Config struct {
		DatabasePath     string
		MigrationsFolder string
		Backend          string
		Driver           string
		Table            string
		Binary           string
	}

	migrations struct {
		LocalFolder string `yaml:"local_folder"`
		Database    string `yaml:"database"`
		Backend     string `yaml:"backend"`
		Driver      string `yaml:"driver"`
		Table       string `yaml:"table"`
		Binary      string `yaml:"binary"`
	}

	configFile struct {
		Version    string     `yaml:"version"`
		Migrations migrations `yaml:"migrations"`
	}
)

func NewConfigFromYaml(path string) (Config, error) {
	var cfg Config

	b, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "could not read micromigrate configuration file")
	}

	var cfgFile configFile
	if err := yaml.UnmarshalStrict(b, &cfgFile); err != nil {
		return cfg, errors.Wrap(err, "could not parse micromigrate configuration file")
	}

	if cfgFile.Version != supportedConfigVersion {
		return cfg, errors.Wrapf(ErrUnsupportedVersion, "[%s]", cfgFile.Version)
	}

	cfg.DatabasePath = fromEnv(cfgFile.Migrations.Database)
	cfg.MigrationsFolder = fromEnv(cfgFile.Migrations.LocalFolder)
	cfg.Backend = withDefault(fromEnv(cfgFile.Migrations.Backend), BackendSqlite)
	cfg.Driver = withDefault(fromEnv(cfgFile.Migrations.Driver), "sqlite3")
	cfg.Table = withDefault(fromEnv(cfgFile.Migrations.Table), migration.DefaultTrackingTable)
	cfg.Binary = withDefault(fromEnv(cfgFile.Migrations.Binary), "sqlite3")

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (cfg Config) Validate() error {
	if cfg.DatabasePath == "" {
		return errors.Wrap(ErrInvalidConfig, "database was not defined")
	}

	if cfg.MigrationsFolder == "" {
		return errors.Wrap(ErrInvalidConfig, "migrations folder was not defined")
	}

	switch cfg.Backend {
	case BackendSqlite, BackendScript:
	default:
		return errors.Wrapf(ErrUnsupportedBackend, "[%s]", cfg.Backend)
	}

	if cfg.Backend == BackendSqlite && cfg.Driver != "sqlite3" && cfg.Driver != "sqlite" {
		return errors.Wrapf(ErrUnsupportedDriver, "[%s]", cfg.Driver)
	}

	return migration.ValidateTableName(cfg.Table)
}

// InitCfg writes the config stub, an existing file is never overwritten
func InitCfg(path string) error {
	if FileExists(path) {
		return errors.Wrapf(ErrConfigExists, "[%s]", path)
	}

	if err := ioutil.WriteFile(path, []byte(configFileStub), 0644); err != nil {
		return errors.Wrap(err, "could not create config file")
	}

	return nil
}

func FileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) || err != nil {
		return false
	}

	return !info.IsDir()
}

// fromEnv resolves %%NAME%% values from the environment
func fromEnv(value string) string {
	if len(value) > 4 && strings.HasPrefix(value, "%%") && strings.HasSuffix(value, "%%") {
		return os.Getenv(strings.Trim(value, "%"))
	}

	return value
}

func withDefault(value, def string) string {
	if value == "" {
		return def
	}

	return value
}
