package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("NAVIGATE_DELAY_MS", "")
	t.Setenv("PLATFORM_BASE_URL", "https://platform.example.com/")

	cfg := Load()
	require.False(t, cfg.ArchiveEnabled())
	require.Equal(t, 3*time.Second, cfg.NavigateDelay)
	require.Equal(t, 5, cfg.MaxOverrideAttempts)
	require.Equal(t, "https://platform.example.com", cfg.PlatformBaseURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/proctor")
	t.Setenv("MAX_OVERRIDE_ATTEMPTS", "2")
	t.Setenv("PLATFORM_TIMEOUT_MS", "bogus")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example.com, ,https://b.example.com ")

	cfg := Load()
	require.True(t, cfg.ArchiveEnabled())
	require.Equal(t, 2, cfg.MaxOverrideAttempts)
	require.Equal(t, 15*time.Second, cfg.PlatformTimeout)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}
