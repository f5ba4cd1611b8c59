package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Secrets (database and SMTP passwords) should come from the environment, never from defaults in code.
type AppConfig struct {
	AppPort string
	// BaseURL is the public origin used to build edit/delete links in notification emails.
	BaseURL            string
	AllowedOrigins     []string
	RateLimitPerMinute int
	CaptchaEnabled     bool
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database: DBDriver is one of mysql, postgres, sqlite
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBPath      string
	// Redis for list caching and captcha answers
	RedisHost       string
	RedisPort       int
	RedisDB         int
	RedisPassword   string
	CacheTTLSeconds int
	// SMTP for post-created notifications
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLS      bool
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Posts
	PostsPageSize int
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// config/config.json first, then defaults for what it leaves empty, then the environment.
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Fatalf("invalid config/config.json: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	switch cfg.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		log.Fatalf("unsupported DB_DRIVER %q (expected mysql, postgres or sqlite)", cfg.DBDriver)
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// fileConfig mirrors the grouped layout of config/config.json.
type fileConfig struct {
	App struct {
		AppPort            string
		BaseURL            string
		AllowedOrigins     []string
		RateLimitPerMinute int
		CaptchaEnabled     bool
	} `json:"app"`
	Database struct {
		Driver      string
		DatabaseURI string
		DBHost      string
		DBPort      string
		DBUser      string
		DBPassword  string
		DBName      string
		DBPath      string
	} `json:"database"`
	Redis struct {
		RedisHost       string
		RedisPort       int
		RedisDB         int
		RedisPassword   string
		CacheTTLSeconds int
	} `json:"redis"`
	SMTP struct {
		SMTPHost     string
		SMTPPort     int
		SMTPUsername string
		SMTPPassword string
		SMTPFrom     string
		SMTPFromName string
		SMTPTLS      bool
	} `json:"smtp"`
	Log struct {
		Level      string
		Path       string
		GinMode    string
		GinPath    string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
		Compress   bool
	} `json:"log"`
	Post struct {
		PageSize int
	} `json:"post"`
}

// loadJSONConfig reads the grouped JSON file into out if present. A missing file is not an error.
func loadJSONConfig(path string, out *AppConfig) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := json.Unmarshal(b, &fc); err != nil {
		return err
	}

	a, d, r, s, l := fc.App, fc.Database, fc.Redis, fc.SMTP, fc.Log
	out.AppPort, out.BaseURL, out.CaptchaEnabled = a.AppPort, a.BaseURL, a.CaptchaEnabled
	out.RateLimitPerMinute, out.AllowedOrigins = a.RateLimitPerMinute, a.AllowedOrigins

	out.DBDriver, out.DatabaseURI, out.DBPath = strings.ToLower(d.Driver), d.DatabaseURI, d.DBPath
	out.DBHost, out.DBPort, out.DBName = d.DBHost, d.DBPort, d.DBName
	out.DBUser, out.DBPassword = d.DBUser, d.DBPassword

	out.RedisHost, out.RedisPort, out.RedisDB = r.RedisHost, r.RedisPort, r.RedisDB
	out.RedisPassword, out.CacheTTLSeconds = r.RedisPassword, r.CacheTTLSeconds

	out.SMTPHost, out.SMTPPort, out.SMTPTLS = s.SMTPHost, s.SMTPPort, s.SMTPTLS
	out.SMTPUsername, out.SMTPPassword = s.SMTPUsername, s.SMTPPassword
	out.SMTPFrom, out.SMTPFromName = s.SMTPFrom, s.SMTPFromName

	out.LogLevel, out.LogPath = l.Level, l.Path
	out.GinMode, out.GinPath = l.GinMode, l.GinPath
	out.LogMaxSizeMB, out.LogMaxBackups, out.LogMaxAgeDays, out.LogCompress = l.MaxSizeMB, l.MaxBackups, l.MaxAgeDays, l.Compress

	out.PostsPageSize = fc.Post.PageSize
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	orString(&c.AppPort, "8080")
	orString(&c.BaseURL, "http://localhost:"+c.AppPort)
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	orInt(&c.RateLimitPerMinute, 30)
	orString(&c.GinMode, "release")
	orString(&c.GinPath, "logs/go_gin.log")

	orString(&c.DBDriver, "mysql")
	orString(&c.DBHost, "127.0.0.1")
	if c.DBDriver == "postgres" {
		orString(&c.DBPort, "5432")
	} else {
		orString(&c.DBPort, "3306")
	}
	orString(&c.DBUser, "storyvault")
	orString(&c.DBName, "storyvault")
	orString(&c.DBPath, "data/storyvault.db")

	// RedisHost stays empty unless configured: caching and captcha then use in-process fallbacks.
	orInt(&c.RedisPort, 6379)
	orInt(&c.CacheTTLSeconds, 60)

	orInt(&c.SMTPPort, 587)
	orString(&c.SMTPFromName, "StoryVault")

	orString(&c.LogLevel, "info")
	orInt(&c.LogMaxSizeMB, 100)
	orInt(&c.LogMaxBackups, 3)
	orInt(&c.LogMaxAgeDays, 7)

	orInt(&c.PostsPageSize, 20)
}

func orString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func orInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

// stringEnv, intEnv and boolEnv bind environment variables to AppConfig fields.
var stringEnv = map[string]func(*AppConfig) *string{
	"APP_PORT":       func(c *AppConfig) *string { return &c.AppPort },
	"GIN_MODE":       func(c *AppConfig) *string { return &c.GinMode },
	"GIN_PATH":       func(c *AppConfig) *string { return &c.GinPath },
	"DATABASE_URI":   func(c *AppConfig) *string { return &c.DatabaseURI },
	"DB_HOST":        func(c *AppConfig) *string { return &c.DBHost },
	"DB_PORT":        func(c *AppConfig) *string { return &c.DBPort },
	"DB_USER":        func(c *AppConfig) *string { return &c.DBUser },
	"DB_PASSWORD":    func(c *AppConfig) *string { return &c.DBPassword },
	"DB_NAME":        func(c *AppConfig) *string { return &c.DBName },
	"DB_PATH":        func(c *AppConfig) *string { return &c.DBPath },
	"REDIS_HOST":     func(c *AppConfig) *string { return &c.RedisHost },
	"REDIS_PASSWORD": func(c *AppConfig) *string { return &c.RedisPassword },
	"SMTP_HOST":      func(c *AppConfig) *string { return &c.SMTPHost },
	"SMTP_USERNAME":  func(c *AppConfig) *string { return &c.SMTPUsername },
	"SMTP_PASSWORD":  func(c *AppConfig) *string { return &c.SMTPPassword },
	"SMTP_FROM":      func(c *AppConfig) *string { return &c.SMTPFrom },
	"SMTP_FROM_NAME": func(c *AppConfig) *string { return &c.SMTPFromName },
	"LOG_LEVEL":      func(c *AppConfig) *string { return &c.LogLevel },
	"LOG_PATH":       func(c *AppConfig) *string { return &c.LogPath },
}

var intEnv = map[string]func(*AppConfig) *int{
	"RATE_LIMIT_PER_MINUTE": func(c *AppConfig) *int { return &c.RateLimitPerMinute },
	"REDIS_PORT":            func(c *AppConfig) *int { return &c.RedisPort },
	"REDIS_DB":              func(c *AppConfig) *int { return &c.RedisDB },
	"CACHE_TTL_SECONDS":     func(c *AppConfig) *int { return &c.CacheTTLSeconds },
	"SMTP_PORT":             func(c *AppConfig) *int { return &c.SMTPPort },
	"LOG_MAX_SIZE_MB":       func(c *AppConfig) *int { return &c.LogMaxSizeMB },
	"LOG_MAX_BACKUPS":       func(c *AppConfig) *int { return &c.LogMaxBackups },
	"LOG_MAX_AGE_DAYS":      func(c *AppConfig) *int { return &c.LogMaxAgeDays },
	"POSTS_PAGE_SIZE":       func(c *AppConfig) *int { return &c.PostsPageSize },
}

var boolEnv = map[string]func(*AppConfig) *bool{
	"CAPTCHA_ENABLED": func(c *AppConfig) *bool { return &c.CaptchaEnabled },
	"SMTP_TLS":        func(c *AppConfig) *bool { return &c.SMTPTLS },
	"LOG_COMPRESS":    func(c *AppConfig) *bool { return &c.LogCompress },
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	for key, field := range stringEnv {
		if v := os.Getenv(key); v != "" {
			*field(c) = v
		}
	}
	for key, field := range intEnv {
		if v := os.Getenv(key); v != "" {
			*field(c) = mustParseInt(key, v)
		}
	}
	for key, field := range boolEnv {
		if v := os.Getenv(key); v != "" {
			*field(c) = v == "true"
		}
	}

	if v := os.Getenv("BASE_URL"); v != "" {
		c.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		c.DBDriver = strings.ToLower(v)
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
}

func mustParseInt(key, val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer for %s=%q: %v", key, val, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
