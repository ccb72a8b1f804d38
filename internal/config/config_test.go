package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvAPIKey, EnvProjectID, EnvAPIURL,
		EnvUserAgent, EnvCookies, EnvListenAddr, EnvMaxSessions,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.browserbase.com", cfg.APIURL)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, int64(10), cfg.MaxSessions)
	assert.Empty(t, cfg.Cookies)
	assert.False(t, cfg.HasCredentials())
}

func TestLoadFullEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAPIKey, "bb-key")
	t.Setenv(EnvProjectID, "proj-1")
	t.Setenv(EnvAPIURL, "http://localhost:9000")
	t.Setenv(EnvUserAgent, "AgentBot/1.0")
	t.Setenv(EnvListenAddr, ":9090")
	t.Setenv(EnvMaxSessions, "3")
	t.Setenv(EnvCookies, `[{"name":"sid","value":"42","domain":"example.com","path":"/"}]`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.HasCredentials())
	assert.Equal(t, "http://localhost:9000", cfg.APIURL)
	assert.Equal(t, "AgentBot/1.0", cfg.UserAgent)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, int64(3), cfg.MaxSessions)
	require.Len(t, cfg.Cookies, 1)
	assert.Equal(t, "sid", cfg.Cookies[0].Name)
	assert.Equal(t, "example.com", cfg.Cookies[0].Domain)
}

func TestLoadRejectsBadCookieJSON(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvCookies, "not-json")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvCookies)
}

func TestLoadRejectsBadMaxSessions(t *testing.T) {
	clearEnv(t)

	for _, bad := range []string{"zero", "0", "-2"} {
		t.Setenv(EnvMaxSessions, bad)
		_, err := Load()
		assert.Error(t, err, "value %q", bad)
	}
}

func TestHasCredentialsRequiresBoth(t *testing.T) {
	assert.False(t, (&Config{APIKey: "k"}).HasCredentials())
	assert.False(t, (&Config{ProjectID: "p"}).HasCredentials())
	assert.True(t, (&Config{APIKey: "k", ProjectID: "p"}).HasCredentials())
}
