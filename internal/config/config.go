package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Source      DatabaseConfig `yaml:"source"`
	Destination DatabaseConfig `yaml:"destination"`
	FALPRS      FALPRSConfig   `yaml:"falprs"`
	Sync        SyncConfig     `yaml:"sync"`
	Screenshots BlobConfig     `yaml:"screenshots"`
	Events      BlobConfig     `yaml:"events"`
	MinIO       MinIOConfig    `yaml:"minio"`
	NATS        NATSConfig     `yaml:"nats"`
	Metrics     MetricsConfig  `yaml:"metrics"`
	Server      ServerConfig   `yaml:"server"`
	Logging     LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig describes one store. URL, when set, is used verbatim.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// MySQLDSN returns a go-sql-driver/mysql connection string.
func (d DatabaseConfig) MySQLDSN() string {
	if d.URL != "" {
		return d.URL
	}
	c := mysql.NewConfig()
	c.User = d.User
	c.Passwd = d.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	c.DBName = d.Name
	c.ParseTime = true
	c.Loc = time.UTC
	return c.FormatDSN()
}

// FALPRSConfig points at the serving system's own config file. When
// ConfigPath is set the destination connection is read from it.
type FALPRSConfig struct {
	ConfigPath string `yaml:"config_path"`
	Type       string `yaml:"type"`
}

type SyncConfig struct {
	Group               string        `yaml:"group"`
	Workers             int           `yaml:"workers"`
	ScreenshotURLPrefix string        `yaml:"screenshot_url_prefix"`
	Timeout             time.Duration `yaml:"timeout"`
}

// BlobConfig is one replicated tree. It is skipped when SourcePath is empty.
type BlobConfig struct {
	SourcePath string `yaml:"source_path"`
	TargetPath string `yaml:"target_path"`
}

func (b BlobConfig) Enabled() bool { return b.SourcePath != "" }

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

func (m MinIOConfig) Enabled() bool { return m.Endpoint != "" }

type NATSConfig struct {
	URL            string `yaml:"url"`
	Stream         string `yaml:"stream"`
	ReportSubject  string `yaml:"report_subject"`
	TriggerSubject string `yaml:"trigger_subject"`
}

func (n NATSConfig) Enabled() bool { return n.URL != "" }

type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	APIKey         string   `yaml:"api_key"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if cfg.FALPRS.ConfigPath != "" {
		dsn, err := FALPRSConnection(cfg.FALPRS.ConfigPath, cfg.FALPRS.Type)
		if err != nil {
			return nil, err
		}
		cfg.Destination.URL = dsn
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Source.Port == 0 {
		cfg.Source.Port = 3306
	}
	if cfg.Source.MaxConns == 0 {
		cfg.Source.MaxConns = 10
	}
	if cfg.Destination.Port == 0 {
		cfg.Destination.Port = 5432
	}
	if cfg.Destination.MaxConns == 0 {
		cfg.Destination.MaxConns = 20
	}
	if cfg.FALPRS.Type == "" {
		cfg.FALPRS.Type = "frs"
	}
	if cfg.Sync.Group == "" {
		cfg.Sync.Group = "default"
	}
	if cfg.Sync.Workers == 0 {
		cfg.Sync.Workers = 4
	}
	if cfg.NATS.Stream == "" {
		cfg.NATS.Stream = "FDSYNC"
	}
	if cfg.NATS.ReportSubject == "" {
		cfg.NATS.ReportSubject = "fdsync.reports"
	}
	if cfg.NATS.TriggerSubject == "" {
		cfg.NATS.TriggerSubject = "fdsync.trigger"
	}
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "fdsync"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	overrideDatabase("FDSYNC_SOURCE", &cfg.Source)
	overrideDatabase("FDSYNC_DEST", &cfg.Destination)

	if v := os.Getenv("FDSYNC_FALPRS_CONFIG"); v != "" {
		cfg.FALPRS.ConfigPath = v
	}
	if v := os.Getenv("FDSYNC_GROUP"); v != "" {
		cfg.Sync.Group = v
	}
	if v := os.Getenv("FDSYNC_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sync.Workers = n
		}
	}
	if v := os.Getenv("FDSYNC_SCREENSHOT_URL_PREFIX"); v != "" {
		cfg.Sync.ScreenshotURLPrefix = v
	}
	if v := os.Getenv("FDSYNC_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FDSYNC_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("FDSYNC_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("FDSYNC_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("FDSYNC_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("FDSYNC_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("FDSYNC_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("FDSYNC_PUSHGATEWAY_URL"); v != "" {
		cfg.Metrics.PushgatewayURL = v
	}
	if v := os.Getenv("FDSYNC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func overrideDatabase(prefix string, d *DatabaseConfig) {
	if v := os.Getenv(prefix + "_URL"); v != "" {
		d.URL = v
	}
	if v := os.Getenv(prefix + "_HOST"); v != "" {
		d.Host = v
	}
	if v := os.Getenv(prefix + "_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			d.Port = port
		}
	}
	if v := os.Getenv(prefix + "_NAME"); v != "" {
		d.Name = v
	}
	if v := os.Getenv(prefix + "_USER"); v != "" {
		d.User = v
	}
	if v := os.Getenv(prefix + "_PASSWORD"); v != "" {
		d.Password = v
	}
}

type falprsFile struct {
	ComponentsManager struct {
		Components map[string]struct {
			DBConnection string `yaml:"dbconnection"`
		} `yaml:"components"`
	} `yaml:"components_manager"`
}

// FALPRSConnection reads the PostgreSQL connection string of the given
// project type ("frs" or "lprs") from a FALPRS config file.
func FALPRSConnection(path, projectType string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read falprs config: %w", err)
	}
	var f falprsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return "", fmt.Errorf("parse falprs config: %w", err)
	}
	component := strings.ToLower(projectType) + "-postgresql-database"
	c, ok := f.ComponentsManager.Components[component]
	if !ok || c.DBConnection == "" {
		return "", fmt.Errorf("falprs config %s: no dbconnection for %s", path, component)
	}
	return c.DBConnection, nil
}
