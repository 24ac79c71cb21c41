package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root of config.yaml. Loaded once at startup and passed
// into passes as an immutable value; nothing mutates it afterwards.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Import  ImportConfig  `yaml:"import"`
	Export  ExportConfig  `yaml:"export"`
	Sync    SyncConfig    `yaml:"sync"`
	System  SystemConfig  `yaml:"system"`
}

// StorageConfig addresses the relational and blob tiers. Credentials are
// taken from the environment (.env), never from the yaml file.
type StorageConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
	S3Bucket    string `yaml:"s3_bucket"`
	S3Region    string `yaml:"s3_region"`
	// S3Endpoint overrides the AWS endpoint for R2/minio-compatible stores.
	S3Endpoint string `yaml:"s3_endpoint"`

	// Env-only, populated by ApplyEnv.
	S3AccessKeyID     string `yaml:"-"`
	S3AccessKeySecret string `yaml:"-"`
}

type ImportConfig struct {
	Folder        string `yaml:"folder"`
	ArchiveFolder string `yaml:"archive_folder"`
	// Extensions of eligible files, without dot. Defaults to the common
	// image formats.
	Extensions     []string `yaml:"extensions"`
	DuplicateCheck bool     `yaml:"duplicate_check"`
	AutoArchive    bool     `yaml:"auto_archive"`
	ImageSource    string   `yaml:"image_source"`
}

type ExportConfig struct {
	Folder string `yaml:"folder"`
	// FilenameTemplate must contain exactly one %s, which receives the
	// record code. Example: "photo_%s.jpg".
	FilenameTemplate string `yaml:"filename_template"`
}

type SyncConfig struct {
	// Policy is "keep_local" (upload, keep the relational copy) or
	// "tier_off" (upload, then clear the relational copy).
	Policy        string `yaml:"policy"`
	Interval      string `yaml:"interval"`
	MaxConcurrent int    `yaml:"max_concurrent"`

	// Parsed form of Interval, filled at load.
	IntervalDuration time.Duration `yaml:"-"`
}

type SystemConfig struct {
	IndexPath string `yaml:"index_path"`
	LogLevel  string `yaml:"log_level"`
	LogFile   string `yaml:"log_file"`
}

// Load reads, parses and validates the config file, then overlays
// environment values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	cfg.applyDefaults()
	cfg.ApplyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.Import.Extensions) == 0 {
		c.Import.Extensions = []string{"jpg", "jpeg", "png", "gif", "bmp", "tif", "tiff", "webp"}
	}
	if c.Export.FilenameTemplate == "" {
		c.Export.FilenameTemplate = "photo_%s.jpg"
	}
	if c.Sync.Policy == "" {
		c.Sync.Policy = "keep_local"
	}
	if c.Sync.Interval == "" {
		c.Sync.Interval = "15m"
	}
	if c.Sync.MaxConcurrent <= 0 {
		c.Sync.MaxConcurrent = 3
	}
	if c.System.IndexPath == "" {
		c.System.IndexPath = "data/fingerprints.db"
	}
	if c.Storage.S3Region == "" {
		c.Storage.S3Region = "auto"
	}
}

// ApplyEnv overlays credentials and connection strings from the
// environment. Called by Load; exported for tests.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		c.Storage.S3Bucket = v
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		c.Storage.S3Endpoint = v
	}
	c.Storage.S3AccessKeyID = os.Getenv("ACCESS_KEY_ID")
	c.Storage.S3AccessKeySecret = os.Getenv("ACCESS_KEY_SECRET")
}

func (c *Config) validate() error {
	switch c.Sync.Policy {
	case "keep_local", "tier_off":
	default:
		return fmt.Errorf("unknown sync policy: %s", c.Sync.Policy)
	}

	duration, err := time.ParseDuration(c.Sync.Interval)
	if err != nil {
		return fmt.Errorf("invalid sync interval %q: %w", c.Sync.Interval, err)
	}
	c.Sync.IntervalDuration = duration

	if strings.Count(c.Export.FilenameTemplate, "%s") != 1 ||
		strings.Count(c.Export.FilenameTemplate, "%") != 1 {
		return fmt.Errorf("filename template %q must contain exactly one %%s", c.Export.FilenameTemplate)
	}

	return nil
}
