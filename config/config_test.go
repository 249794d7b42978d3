package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"LAUDO_LLM_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "DEEPSEEK_API_KEY",
		"LAUDO_LLM_PROVIDER", "LAUDO_LLM_MODEL", "LAUDO_LLM_BASE_URL",
		"LAUDO_SERVER_ADDR", "LAUDO_LOG_LEVEL",
	} {
		t.Setenv(name, "")
	}
}

func TestLoad_MissingCredentialIsFatal(t *testing.T) {
	clearEnv(t)
	_, err := Load("")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingCredential)

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "llm.api_key", cfgErr.Key)
}

func TestLoad_DefaultsWithGoogleKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "g-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)
	assert.Equal(t, 120*time.Second, cfg.LLM.StageTimeout)
	assert.Equal(t, 64*1024, cfg.LLM.MaxInputBytes)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 100, cfg.Server.MaxRuns)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_PrefixedKeyWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("LAUDO_LLM_API_KEY", "laudo-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "laudo-key", cfg.LLM.APIKey)
}

func TestLoad_ProviderKeyIsNotCrossBound(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "google-secret")
	t.Setenv("OPENAI_API_KEY", "openai-secret")
	t.Setenv("LAUDO_LLM_PROVIDER", "openai")
	t.Setenv("LAUDO_LLM_MODEL", "gpt-4o-mini")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openai-secret", cfg.LLM.APIKey)
}

func TestLoad_OtherVendorKeyDoesNotSatisfyProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "google-secret")
	t.Setenv("LAUDO_LLM_PROVIDER", "deepseek")
	t.Setenv("LAUDO_LLM_MODEL", "deepseek-chat")
	t.Setenv("LAUDO_LLM_BASE_URL", "https://api.deepseek.com")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"llm": {"provider": "openai", "model": "gpt-4o-mini", "api_key": "file-key", "stage_timeout": "30s"},
		"server": {"addr": ":9000"}
	}`), 0o600))
	t.Setenv("LAUDO_SERVER_ADDR", ":9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "file-key", cfg.LLM.APIKey)
	assert.Equal(t, 30*time.Second, cfg.LLM.StageTimeout)
	assert.Equal(t, ":9100", cfg.Server.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "file", cfgErr.Key)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		llm  LLMConfig
		key  string
		is   error
	}{
		{name: "mock needs no key", llm: LLMConfig{Provider: "mock"}},
		{name: "gemini ok", llm: LLMConfig{Provider: "gemini", APIKey: "k"}},
		{name: "unknown provider", llm: LLMConfig{Provider: "bard", APIKey: "k"}, key: "llm.provider", is: ErrUnsupportedProvider},
		{name: "openai needs model", llm: LLMConfig{Provider: "openai", APIKey: "k"}, key: "llm.model"},
		{name: "deepseek needs base url", llm: LLMConfig{Provider: "deepseek", Model: "deepseek-chat", APIKey: "k"}, key: "llm.base_url"},
		{name: "negative input cap", llm: LLMConfig{Provider: "gemini", APIKey: "k", MaxInputBytes: -1}, key: "llm.max_input_bytes"},
		{name: "gemini without key", llm: LLMConfig{Provider: "gemini"}, key: "llm.api_key", is: ErrMissingCredential},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Config{LLM: tc.llm}.Validate()
			if tc.key == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *Error
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tc.key, cfgErr.Key)
			if tc.is != nil {
				assert.ErrorIs(t, err, tc.is)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "already-set")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GOOGLE_API_KEY=from-dotenv\nOPENAI_API_KEY=ignored\n"), 0o600))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv("GOOGLE_API_KEY"))
	assert.Equal(t, "already-set", os.Getenv("OPENAI_API_KEY"))

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LogConfig{Level: "warn", Format: "json"})
	logger.Info("hidden")
	logger.Warn("shown", "stage", "planner")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, `"stage":"planner"`)
}
