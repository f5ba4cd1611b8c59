package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestApplyDefaults(t *testing.T) {
	var c AppConfig
	applyDefaults(&c)

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "http://localhost:8080", c.BaseURL)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.Equal(t, "mysql", c.DBDriver)
	assert.Equal(t, "3306", c.DBPort)
	assert.Empty(t, c.RedisHost)
	assert.Equal(t, 20, c.PostsPageSize)
	assert.Equal(t, 587, c.SMTPPort)
}

func TestApplyDefaultsPostgresPort(t *testing.T) {
	c := AppConfig{DBDriver: "postgres"}
	applyDefaults(&c)
	assert.Equal(t, "5432", c.DBPort)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_PATH", "/tmp/vault.db")
	t.Setenv("BASE_URL", "https://stories.example.com/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SMTP_TLS", "true")
	t.Setenv("CAPTCHA_ENABLED", "true")

	var c AppConfig
	applyDefaults(&c)
	applyEnvOverrides(&c)

	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "/tmp/vault.db", c.DBPath)
	assert.Equal(t, "https://stories.example.com", c.BaseURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, c.AllowedOrigins)
	assert.Equal(t, 2525, c.SMTPPort)
	assert.True(t, c.SMTPTLS)
	assert.True(t, c.CaptchaEnabled)
}

func TestLoadJSONConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	var c AppConfig
	require.NoError(t, loadJSONConfig(filepath.Join(dir, "missing.json"), &c))

	body := `{
		"app": {"AppPort": "9000", "AllowedOrigins": ["https://a.example.com"], "CaptchaEnabled": true},
		"database": {"Driver": "sqlite", "DBPath": "data/x.db"},
		"smtp": {"SMTPHost": "mail.example.com", "SMTPPort": 465, "SMTPTLS": true},
		"post": {"PageSize": 50}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	require.NoError(t, loadJSONConfig(path, &c))
	assert.Equal(t, "9000", c.AppPort)
	assert.Equal(t, []string{"https://a.example.com"}, c.AllowedOrigins)
	assert.True(t, c.CaptchaEnabled)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "data/x.db", c.DBPath)
	assert.Equal(t, 465, c.SMTPPort)
	assert.True(t, c.SMTPTLS)
	assert.Equal(t, 50, c.PostsPageSize)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	assert.Error(t, loadJSONConfig(path, &c))
}

func TestBuildDSN(t *testing.T) {
	base := AppConfig{DBHost: "db", DBPort: "3306", DBUser: "u", DBPassword: "p", DBName: "vault", DBPath: "data/v.db"}

	mysqlCfg := base
	mysqlCfg.DBDriver = "mysql"
	assert.Equal(t, "u:p@tcp(db:3306)/vault?charset=utf8mb4&parseTime=True&loc=UTC", BuildDSN(mysqlCfg))

	pgCfg := base
	pgCfg.DBDriver = "postgres"
	pgCfg.DBPort = "5432"
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=vault sslmode=disable TimeZone=UTC", BuildDSN(pgCfg))

	sqliteCfg := base
	sqliteCfg.DBDriver = "sqlite"
	assert.Equal(t, "data/v.db?_busy_timeout=5000&_foreign_keys=on", BuildDSN(sqliteCfg))

	explicit := base
	explicit.DatabaseURI = "postgres://x"
	assert.Equal(t, "postgres://x", BuildDSN(explicit))
}

func TestOpenDatabase(t *testing.T) {
	_, err := OpenDatabase(DatabaseOptions{Driver: "oracle"})
	assert.ErrorContains(t, err, "unsupported database driver")

	dsn := filepath.Join(t.TempDir(), "open.db") + "?_busy_timeout=5000&_foreign_keys=on"
	gdb, err := OpenDatabase(DatabaseOptions{Driver: "sqlite", DSN: dsn, LogLevel: "silent"})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	defer sqlDB.Close()
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestToGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Info, toGormLogLevel("debug"))
	assert.Equal(t, logger.Warn, toGormLogLevel("info"))
	assert.Equal(t, logger.Error, toGormLogLevel("error"))
	assert.Equal(t, logger.Silent, toGormLogLevel("silent"))
	assert.Equal(t, logger.Warn, toGormLogLevel("bogus"))
}
