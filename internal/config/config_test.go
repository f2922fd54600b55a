package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithNoFileOrEnv(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "library.db", cfg.Database.Path)
	assert.Equal(t, 14, cfg.Loan.DefaultDays)
	assert.Equal(t, 56, cfg.Loan.MaxDays)
	assert.Equal(t, "0.25", cfg.LateFee.PerDay)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "librarymcp.toml")
	writeFile(t, path, `
[database]
path = "from-file.db"

[loan]
default_days = 21
max_days = 60
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file.db", cfg.Database.Path)
	assert.Equal(t, 21, cfg.Loan.DefaultDays)
	assert.Equal(t, 60, cfg.Loan.MaxDays)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "librarymcp.toml")
	writeFile(t, path, `
[database]
path = "from-file.db"
`)
	t.Setenv("LIBRARYMCP_DATABASE_PATH", "from-env.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.Database.Path)
}

func TestLoad_EnvIntOverrideIgnoresInvalidOrNonPositive(t *testing.T) {
	t.Setenv("LIBRARYMCP_LOAN_DEFAULT_DAYS", "not-a-number")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 14, cfg.Loan.DefaultDays)

	t.Setenv("LIBRARYMCP_LOAN_DEFAULT_DAYS", "-5")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 14, cfg.Loan.DefaultDays)
}

func TestLoad_EnvConfigPathEnvVar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	writeFile(t, path, `
[log]
level = "debug"
`)
	t.Setenv("LIBRARYMCP_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidConfigFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "librarymcp.toml")
	writeFile(t, path, `
[loan]
default_days = 60
max_days = 14
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_RejectsInvalidLogLevel(t *testing.T) {
	cfg := &Config{
		Database:   DatabaseConfig{Path: "x.db"},
		Loan:       LoanConfig{DefaultDays: 14, MaxDays: 56},
		LateFee:    LateFeeConfig{PerDay: "0.25"},
		Sampling:   SamplingConfig{TimeoutSeconds: 20},
		Pagination: PaginationConfig{DefaultPageSize: 20, MaxPageSize: 100},
		Log:        LogConfig{Level: "verbose"},
	}
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsNonDecimalLateFee(t *testing.T) {
	cfg := &Config{
		Database:   DatabaseConfig{Path: "x.db"},
		Loan:       LoanConfig{DefaultDays: 14, MaxDays: 56},
		LateFee:    LateFeeConfig{PerDay: "not-a-decimal"},
		Sampling:   SamplingConfig{TimeoutSeconds: 20},
		Pagination: PaginationConfig{DefaultPageSize: 20, MaxPageSize: 100},
		Log:        LogConfig{Level: "info"},
	}
	assert.Error(t, cfg.Validate())
}

func TestLateFeeConfig_PerDayAmount(t *testing.T) {
	cfg := LateFeeConfig{PerDay: "0.25"}
	assert.Equal(t, "0.25", cfg.PerDayAmount().String())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
