package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the vessel photo scraper
type Config struct {
	// Target site settings
	Site SiteConfig `yaml:"site" json:"site"`

	// Discovery settings
	Discovery DiscoveryConfig `yaml:"discovery" json:"discovery"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Retry behavior
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Object storage settings
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Vessel tracker settings
	Tracker TrackerConfig `yaml:"tracker" json:"tracker"`

	// Batch processing settings
	Batch BatchConfig `yaml:"batch" json:"batch"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SiteConfig holds settings for the photo-sharing site
type SiteConfig struct {
	BaseURL            string        `yaml:"base_url" json:"base_url"`
	UserAgent          string        `yaml:"user_agent" json:"user_agent"`
	SessionPoolSize    int           `yaml:"session_pool_size" json:"session_pool_size"`
	GalleryConcurrency int           `yaml:"gallery_concurrency" json:"gallery_concurrency"`
	RequestsPerMinute  int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	ConnectTimeout     time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	RequestTimeout     time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// DiscoveryConfig holds gallery discovery configuration
type DiscoveryConfig struct {
	TargetPhotosPerVessel int `yaml:"target_photos_per_vessel" json:"target_photos_per_vessel"`
	PhotosPerPage         int `yaml:"photos_per_page" json:"photos_per_page"`
	MaxGalleryPages       int `yaml:"max_gallery_pages" json:"max_gallery_pages"`
	AltSortMaxPages       int `yaml:"alt_sort_max_pages" json:"alt_sort_max_pages"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
}

// RetryConfig holds retry and backoff configuration
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay    time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
	JitterFactor float64       `yaml:"jitter_factor" json:"jitter_factor"`
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint     string `yaml:"endpoint" json:"endpoint"`
	AccessKey    string `yaml:"access_key" json:"access_key"`
	SecretKey    string `yaml:"secret_key" json:"secret_key"`
	Bucket       string `yaml:"bucket" json:"bucket"`
	UseSSL       bool   `yaml:"use_ssl" json:"use_ssl"`
	UploadPrefix string `yaml:"upload_prefix" json:"upload_prefix"`
	IndexKey     string `yaml:"index_key" json:"index_key"`
}

// TrackerConfig holds vessel identifier source configuration
type TrackerConfig struct {
	Mode      string   `yaml:"mode" json:"mode"` // "api" or "static"
	APIURL    string   `yaml:"api_url" json:"api_url"`
	APIKey    string   `yaml:"api_key" json:"api_key"`
	Latitude  float64  `yaml:"latitude" json:"latitude"`
	Longitude float64  `yaml:"longitude" json:"longitude"`
	RadiusKM  int      `yaml:"radius_km" json:"radius_km"`
	StaticIDs []string `yaml:"static_ids" json:"static_ids"`
}

// BatchConfig holds batch orchestration configuration
type BatchConfig struct {
	Size              int `yaml:"size" json:"size"`
	VesselConcurrency int `yaml:"vessel_concurrency" json:"vessel_concurrency"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:            "https://www.shipspotting.com",
			UserAgent:          "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			SessionPoolSize:    2,
			GalleryConcurrency: 4,
			RequestsPerMinute:  120,
			ConnectTimeout:     8 * time.Second,
			RequestTimeout:     15 * time.Second,
		},
		Discovery: DiscoveryConfig{
			TargetPhotosPerVessel: 40,
			PhotosPerPage:         12,
			MaxGalleryPages:       10,
			AltSortMaxPages:       2,
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 20,
			DownloadTimeout:     10 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			BaseDelay:    1 * time.Second,
			MaxDelay:     60 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		Storage: StorageConfig{
			Endpoint:     "localhost:9000",
			Bucket:       "vessel-gallery",
			UseSSL:       false,
			UploadPrefix: "photos",
			IndexKey:     "index/vessels.json",
		},
		Tracker: TrackerConfig{
			Mode:      "static",
			APIURL:    "https://api.datalastic.com/api/v0",
			Latitude:  32.8154,
			Longitude: 35.0043,
			RadiusKM:  15,
		},
		Batch: BatchConfig{
			Size:              10,
			VesselConcurrency: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if baseURL := os.Getenv("SHIPSNAP_BASE_URL"); baseURL != "" {
		c.Site.BaseURL = baseURL
	}
	if userAgent := os.Getenv("SHIPSNAP_USER_AGENT"); userAgent != "" {
		c.Site.UserAgent = userAgent
	}

	if endpoint := os.Getenv("SHIPSNAP_STORAGE_ENDPOINT"); endpoint != "" {
		c.Storage.Endpoint = endpoint
	}
	if accessKey := os.Getenv("SHIPSNAP_STORAGE_ACCESS_KEY"); accessKey != "" {
		c.Storage.AccessKey = accessKey
	}
	if secretKey := os.Getenv("SHIPSNAP_STORAGE_SECRET_KEY"); secretKey != "" {
		c.Storage.SecretKey = secretKey
	}
	if bucket := os.Getenv("SHIPSNAP_STORAGE_BUCKET"); bucket != "" {
		c.Storage.Bucket = bucket
	}

	if mode := os.Getenv("SHIPSNAP_MODE"); mode != "" {
		c.Tracker.Mode = strings.ToLower(mode)
	}
	if apiKey := os.Getenv("SHIPSNAP_TRACKER_API_KEY"); apiKey != "" {
		c.Tracker.APIKey = apiKey
	}

	if target := os.Getenv("SHIPSNAP_TARGET_PHOTOS"); target != "" {
		var val int
		fmt.Sscanf(target, "%d", &val)
		if val > 0 {
			c.Discovery.TargetPhotosPerVessel = val
		}
	}
	if concurrent := os.Getenv("SHIPSNAP_CONCURRENT_DOWNLOADS"); concurrent != "" {
		var val int
		fmt.Sscanf(concurrent, "%d", &val)
		if val > 0 {
			c.Download.ConcurrentDownloads = val
		}
	}

	if logLevel := os.Getenv("SHIPSNAP_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	// Check in order of precedence
	locations := []string{
		".shipsnap.yaml",
		".shipsnap.yml",
		filepath.Join("resources", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "shipsnap", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "shipsnap", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".shipsnap.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

var vesselIDPattern = regexp.MustCompile(`^\d{7}$`)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Site.BaseURL == "" {
		errs = append(errs, errors.New("site base URL is required"))
	}
	if c.Site.SessionPoolSize <= 0 {
		errs = append(errs, errors.New("session pool size must be positive"))
	}
	if c.Site.GalleryConcurrency <= 0 {
		errs = append(errs, errors.New("gallery concurrency must be positive"))
	}

	if c.Discovery.TargetPhotosPerVessel <= 0 {
		errs = append(errs, errors.New("target photos per vessel must be positive"))
	}
	if c.Discovery.PhotosPerPage <= 0 {
		errs = append(errs, errors.New("photos per page must be positive"))
	}
	if c.Discovery.MaxGalleryPages <= 0 {
		errs = append(errs, errors.New("max gallery pages must be positive"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max retry attempts must be positive"))
	}

	if c.Storage.Endpoint == "" {
		errs = append(errs, errors.New("storage endpoint is required"))
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, errors.New("storage bucket is required"))
	}

	switch strings.ToLower(c.Tracker.Mode) {
	case "api":
		if c.Tracker.APIKey == "" {
			errs = append(errs, errors.New("tracker API key is required in api mode"))
		}
	case "static":
		for _, id := range c.Tracker.StaticIDs {
			if !vesselIDPattern.MatchString(id) {
				errs = append(errs, fmt.Errorf("static vessel id %q is not a 7-digit identifier", id))
			}
		}
	default:
		errs = append(errs, errors.New("tracker mode must be \"api\" or \"static\""))
	}

	if c.Batch.Size <= 0 {
		errs = append(errs, errors.New("batch size must be positive"))
	}
	if c.Batch.VesselConcurrency <= 0 {
		errs = append(errs, errors.New("batch vessel concurrency must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if mode, ok := flags["mode"].(string); ok && mode != "" {
		c.Tracker.Mode = strings.ToLower(mode)
	}
	if target, ok := flags["target-photos"].(int); ok && target > 0 {
		c.Discovery.TargetPhotosPerVessel = target
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Download.ConcurrentDownloads = concurrent
	}
	if batchSize, ok := flags["batch-size"].(int); ok && batchSize > 0 {
		c.Batch.Size = batchSize
	}
	if bucket, ok := flags["bucket"].(string); ok && bucket != "" {
		c.Storage.Bucket = bucket
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".shipsnap.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
