// Package config loads crawler settings: built-in defaults, then an optional
// YAML file named by REXA_CONFIG, then environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const configPathEnv = "REXA_CONFIG"

type Config struct {
	// Search settings
	SearchProvider    string        `yaml:"search_provider"` // naver | rss
	Query             string        `yaml:"query"`
	Count             int           `yaml:"count"`
	NaverClientID     string        `yaml:"naver_client_id"`
	NaverClientSecret string        `yaml:"naver_client_secret"`
	NaverEndpoint     string        `yaml:"naver_endpoint"`
	RSSTemplate       string        `yaml:"rss_template"`
	SearchTimeout     time.Duration `yaml:"search_timeout"`

	// Classifier settings
	ClassifierProvider string        `yaml:"classifier_provider"` // openai | gemini | none
	OpenAIAPIKey       string        `yaml:"openai_api_key"`
	OpenAIModel        string        `yaml:"openai_model"`
	OpenAIBaseURL      string        `yaml:"openai_base_url"`
	GeminiAPIKey       string        `yaml:"gemini_api_key"`
	GeminiModel        string        `yaml:"gemini_model"`
	ClassifierTimeout  time.Duration `yaml:"classifier_timeout"`
	Temperature        float32       `yaml:"temperature"`
	MaxSemanticCalls   int           `yaml:"max_semantic_calls"` // per run, 0 = unlimited
	ClassifierCacheTTL time.Duration `yaml:"classifier_cache_ttl"`

	// Dedup settings
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	URLWindowHours      int     `yaml:"url_window_hours"`
	TitleWindowHours    int     `yaml:"title_window_hours"`

	// Storage settings
	StorageBackend     string   `yaml:"storage_backend"` // file | csv | sqlite | postgres | mongo | sheets
	StorageMirrors     []string `yaml:"storage_mirrors"`
	FilePath           string   `yaml:"file_path"`
	FileRetentionHours int      `yaml:"file_retention_hours"`
	CSVPath            string   `yaml:"csv_path"`
	SQLitePath         string   `yaml:"sqlite_path"`
	DatabaseURL        string   `yaml:"database_url"`
	MongoURI           string   `yaml:"mongo_uri"`
	MongoDatabase      string   `yaml:"mongo_database"`
	MongoCollection    string   `yaml:"mongo_collection"`
	SheetsID           string   `yaml:"sheets_id"`
	SheetsName         string   `yaml:"sheets_name"`
	GoogleCredentials  string   `yaml:"google_credentials"` // service account JSON

	PersistInterval time.Duration `yaml:"persist_interval"`

	// Fetcher settings
	FetchEnabled     bool          `yaml:"fetch_enabled"`
	FetchMaxArticles int           `yaml:"fetch_max_articles"`
	FetchAttempts    int           `yaml:"fetch_attempts"`
	FetchBackoff     time.Duration `yaml:"fetch_backoff"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout"`

	// App settings
	UserID           string `yaml:"user_id"`
	LogLevel         string `yaml:"log_level"`
	EnableMonitoring bool   `yaml:"enable_monitoring"`
	MonitoringPort   string `yaml:"monitoring_port"`
}

func defaultConfig() *Config {
	return &Config{
		SearchProvider: "naver",
		Query:          "부동산",
		Count:          10,
		NaverEndpoint:  "https://openapi.naver.com/v1/search/news.json",
		RSSTemplate:    "https://news.google.com/rss/search?q=%s&hl=ko&gl=KR&ceid=KR:ko",
		SearchTimeout:  5 * time.Second,

		ClassifierProvider: "openai",
		OpenAIModel:        "gpt-4o-mini",
		GeminiModel:        "gemini-1.5-flash",
		ClassifierTimeout:  10 * time.Second,
		Temperature:        0.1,
		ClassifierCacheTTL: 6 * time.Hour,

		SimilarityThreshold: 0.75,
		URLWindowHours:      3,
		TitleWindowHours:    24,

		StorageBackend:     "csv",
		FilePath:           "news_records.json",
		FileRetentionHours: 48,
		CSVPath:            "news_data.csv",
		SQLitePath:         "news.db",
		MongoDatabase:      "rexa",
		MongoCollection:    "news",
		SheetsName:         "Sheet1",

		PersistInterval: 500 * time.Millisecond,

		FetchMaxArticles: 5,
		FetchAttempts:    2,
		FetchBackoff:     2 * time.Second,
		FetchTimeout:     15 * time.Second,

		LogLevel:       "info",
		MonitoringPort: "8080",
	}
}

// Load returns the effective configuration. A missing classifier key is not an
// error; the pipeline runs on keywords in that case.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()
	return cfg, cfg.Validate()
}

// loadFile decodes YAML on top of the current values, so keys absent from
// the file keep their defaults.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	c.SearchProvider = getEnvOrDefault("SEARCH_PROVIDER", c.SearchProvider)
	c.Query = getEnvOrDefault("SEARCH_QUERY", c.Query)
	c.Count = getEnvIntOrDefault("SEARCH_COUNT", c.Count)
	c.NaverClientID = getEnvOrDefault("NAVER_CLIENT_ID", c.NaverClientID)
	c.NaverClientSecret = getEnvOrDefault("NAVER_CLIENT_SECRET", c.NaverClientSecret)
	c.NaverEndpoint = getEnvOrDefault("NAVER_ENDPOINT", c.NaverEndpoint)
	c.RSSTemplate = getEnvOrDefault("RSS_TEMPLATE", c.RSSTemplate)
	c.SearchTimeout = getEnvDurationOrDefault("SEARCH_TIMEOUT", c.SearchTimeout)

	c.ClassifierProvider = getEnvOrDefault("CLASSIFIER_PROVIDER", c.ClassifierProvider)
	c.OpenAIAPIKey = getEnvOrDefault("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", c.OpenAIModel)
	c.OpenAIBaseURL = getEnvOrDefault("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.GeminiAPIKey = getEnvOrDefault("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = getEnvOrDefault("GEMINI_MODEL", c.GeminiModel)
	c.ClassifierTimeout = getEnvDurationOrDefault("CLASSIFIER_TIMEOUT", c.ClassifierTimeout)
	if v := os.Getenv("CLASSIFIER_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil && f >= 0 {
			c.Temperature = float32(f)
		}
	}
	c.MaxSemanticCalls = getEnvIntOrDefault("MAX_SEMANTIC_CALLS", c.MaxSemanticCalls)
	c.ClassifierCacheTTL = getEnvDurationOrDefault("CLASSIFIER_CACHE_TTL", c.ClassifierCacheTTL)

	if v := os.Getenv("SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.SimilarityThreshold = f
		}
	}
	c.URLWindowHours = getEnvIntOrDefault("URL_WINDOW_HOURS", c.URLWindowHours)
	c.TitleWindowHours = getEnvIntOrDefault("TITLE_WINDOW_HOURS", c.TitleWindowHours)

	c.StorageBackend = getEnvOrDefault("STORAGE_BACKEND", c.StorageBackend)
	if v := os.Getenv("STORAGE_MIRRORS"); v != "" {
		c.StorageMirrors = splitList(v)
	}
	c.FilePath = getEnvOrDefault("FILE_STORE_PATH", c.FilePath)
	c.FileRetentionHours = getEnvIntOrDefault("FILE_RETENTION_HOURS", c.FileRetentionHours)
	c.CSVPath = getEnvOrDefault("CSV_PATH", c.CSVPath)
	c.SQLitePath = getEnvOrDefault("SQLITE_PATH", c.SQLitePath)
	c.DatabaseURL = getEnvOrDefault("DATABASE_URL", c.DatabaseURL)
	c.MongoURI = getEnvOrDefault("MONGO_URI", c.MongoURI)
	c.MongoDatabase = getEnvOrDefault("MONGO_DATABASE", c.MongoDatabase)
	c.MongoCollection = getEnvOrDefault("MONGO_COLLECTION", c.MongoCollection)
	c.SheetsID = getEnvOrDefault("GOOGLE_SHEETS_ID", c.SheetsID)
	c.SheetsName = getEnvOrDefault("GOOGLE_SHEETS_NAME", c.SheetsName)
	c.GoogleCredentials = getEnvOrDefault("GOOGLE_CREDENTIALS_JSON", c.GoogleCredentials)

	c.PersistInterval = getEnvDurationOrDefault("PERSIST_INTERVAL", c.PersistInterval)

	if v := os.Getenv("FETCH_CONTENT"); v != "" {
		c.FetchEnabled = v == "true"
	}
	c.FetchMaxArticles = getEnvIntOrDefault("FETCH_MAX_ARTICLES", c.FetchMaxArticles)
	c.FetchAttempts = getEnvIntOrDefault("FETCH_ATTEMPTS", c.FetchAttempts)
	c.FetchBackoff = getEnvDurationOrDefault("FETCH_BACKOFF", c.FetchBackoff)
	c.FetchTimeout = getEnvDurationOrDefault("FETCH_TIMEOUT", c.FetchTimeout)

	c.UserID = getEnvOrDefault("REXA_USER_ID", c.UserID)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	if v := os.Getenv("ENABLE_HTTP_MONITORING"); v != "" {
		c.EnableMonitoring = v == "true"
	}
	c.MonitoringPort = getEnvOrDefault("MONITORING_PORT", c.MonitoringPort)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var backends = map[string]bool{
	"file": true, "csv": true, "sqlite": true, "postgres": true, "mongo": true, "sheets": true,
}

func (c *Config) Validate() error {
	switch c.SearchProvider {
	case "naver", "rss":
	default:
		return fmt.Errorf("SEARCH_PROVIDER must be 'naver' or 'rss', got %q", c.SearchProvider)
	}
	if c.Count < 1 || c.Count > 100 {
		return fmt.Errorf("SEARCH_COUNT must be between 1 and 100, got %d", c.Count)
	}
	switch c.ClassifierProvider {
	case "openai", "gemini", "none":
	default:
		return fmt.Errorf("CLASSIFIER_PROVIDER must be 'openai', 'gemini' or 'none', got %q", c.ClassifierProvider)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in (0,1], got %v", c.SimilarityThreshold)
	}
	if c.URLWindowHours <= 0 || c.TitleWindowHours <= 0 {
		return fmt.Errorf("history windows must be positive")
	}
	if !backends[c.StorageBackend] {
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if err := c.checkBackend(c.StorageBackend); err != nil {
		return err
	}
	for _, m := range c.StorageMirrors {
		if !backends[m] {
			return fmt.Errorf("unknown storage mirror %q", m)
		}
		if m == c.StorageBackend {
			return fmt.Errorf("storage mirror %q duplicates the primary backend", m)
		}
		if err := c.checkBackend(m); err != nil {
			return err
		}
	}
	if c.FileRetentionHours > 0 && c.FileRetentionHours < max(c.URLWindowHours, c.TitleWindowHours) {
		return fmt.Errorf("FILE_RETENTION_HOURS (%d) must cover the history windows (%dh URL, %dh title)",
			c.FileRetentionHours, c.URLWindowHours, c.TitleWindowHours)
	}
	if c.FetchAttempts < 1 {
		return fmt.Errorf("FETCH_ATTEMPTS must be at least 1")
	}
	return nil
}

func (c *Config) checkBackend(name string) error {
	switch name {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo backend")
		}
	case "sheets":
		if c.SheetsID == "" {
			return fmt.Errorf("GOOGLE_SHEETS_ID is required for the sheets backend")
		}
		if c.GoogleCredentials == "" {
			return fmt.Errorf("GOOGLE_CREDENTIALS_JSON is required for the sheets backend")
		}
	}
	return nil
}

// URLWindow and TitleWindow are the history lookback windows.
func (c *Config) URLWindow() time.Duration {
	return time.Duration(c.URLWindowHours) * time.Hour
}

func (c *Config) TitleWindow() time.Duration {
	return time.Duration(c.TitleWindowHours) * time.Hour
}

// ClassifierKey returns the API key for the selected provider, empty when
// none is configured.
func (c *Config) ClassifierKey() string {
	switch c.ClassifierProvider {
	case "openai":
		return c.OpenAIAPIKey
	case "gemini":
		return c.GeminiAPIKey
	default:
		return ""
	}
}
