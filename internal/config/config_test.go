package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdirTemp moves the test into an empty directory so no config.yaml or .env
// from the working tree is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "serpapi", cfg.Search.Provider)
	assert.Equal(t, 10, cfg.Search.PageSize)
	assert.Equal(t, "https://google.serper.dev", cfg.Search.SerperBaseURL)
	assert.Equal(t, "it", cfg.Search.Country)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.Equal(t, "llama3.2", cfg.Ollama.Model)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "local", cfg.Fetch.Provider)
	assert.Equal(t, 10, cfg.Fetch.TimeoutSecs)
	assert.Contains(t, cfg.Fetch.UserAgent, "Mozilla/5.0")
	assert.Equal(t, "lista_aziende.xlsx", cfg.Ledger.Path)
	assert.Equal(t, 0, cfg.Pipeline.Limit)
	assert.Equal(t, 0, cfg.Pipeline.MaxWriteFailures)
	assert.Equal(t, "smtp.gmail.com", cfg.Email.SMTPServer)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
search:
  provider: serper
  serper_key: yaml-key
ledger:
  path: leads.xlsx
sectors:
  list:
    - Ferramenta
    - Cantieri nautici
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "serper", cfg.Search.Provider)
	assert.Equal(t, "yaml-key", cfg.Search.APIKey())
	assert.Equal(t, "leads.xlsx", cfg.Ledger.Path)
	assert.Equal(t, []string{"Ferramenta", "Cantieri nautici"}, cfg.Sectors.List)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 10, cfg.Search.PageSize)
}

func TestLoadLegacyEnv(t *testing.T) {
	chdirTemp(t)

	t.Setenv("SEARCH_PROVIDER", "SERPER")
	t.Setenv("SERPER_API_KEY", "legacy-key")
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("EMAIL_RECIPIENT", "ops@example.com")
	t.Setenv("EMAIL_SMTP_PORT", "465")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "serper", cfg.Search.Provider)
	assert.Equal(t, "legacy-key", cfg.Search.SerperKey)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "g-key", cfg.Gemini.Key)
	assert.Equal(t, "ops@example.com", cfg.Email.Recipient)
	assert.Equal(t, 465, cfg.Email.SMTPPort)
}

func TestLoadPrefixedEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
ledger:
  path: from-file.xlsx
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	t.Setenv("LEADS_LEDGER_PATH", "from-env.xlsx")
	t.Setenv("LEADS_SEARCH_SERPAPI_KEY", "prefixed")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env.xlsx", cfg.Ledger.Path)
	assert.Equal(t, "prefixed", cfg.Search.SerpAPIKey)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SERPAPI_API_KEY=from-dotenv\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("SERPAPI_API_KEY") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Search.SerpAPIKey)
}

func TestSearchConfig_APIKey(t *testing.T) {
	s := SearchConfig{Provider: "serpapi", SerpAPIKey: "a", SerperKey: "b"}
	assert.Equal(t, "a", s.APIKey())
	assert.Equal(t, "SERPAPI_API_KEY", s.KeyEnv())

	s.Provider = "serper"
	assert.Equal(t, "b", s.APIKey())
	assert.Equal(t, "SERPER_API_KEY", s.KeyEnv())

	s.Provider = "bing"
	assert.Empty(t, s.APIKey())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Search.Provider = "serpapi"
	cfg.Search.PageSize = 10
	cfg.LLM.Provider = "openai"
	cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	cfg.Fetch.Provider = "local"
	cfg.Fetch.TimeoutSecs = 10
	cfg.Ledger.Path = "lista_aziende.xlsx"
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "leads.db"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateRun_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("run"))
}

func TestValidateRun_MissingSearchKeyIsNotFatal(t *testing.T) {
	cfg := validDefaults()
	cfg.Search.SerpAPIKey = ""
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateRun_InvalidLLMProvider(t *testing.T) {
	cfg := validDefaults()
	cfg.LLM.Provider = "llamafile"

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.provider")
}

func TestValidateRun_InvalidSearchProviderIsNotFatal(t *testing.T) {
	cfg := validDefaults()
	cfg.Search.Provider = "bing"
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateRun_MissingOracleKey(t *testing.T) {
	cfg := validDefaults()
	cfg.LLM.Provider = "anthropic"

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	cfg.LLM.Provider = "gemini"
	err = cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini.key is required")
}

func TestValidateRun_PageSizeCap(t *testing.T) {
	cfg := validDefaults()
	cfg.Search.PageSize = 50

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search.page_size")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateHistory_NoStore(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "none"

	err := cfg.Validate("history")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestValidateStoreURLRequired(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("notify")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestEmailConfig_MailConfigured(t *testing.T) {
	assert.False(t, EmailConfig{User: "u"}.MailConfigured())
	assert.True(t, EmailConfig{User: "u", Password: "p"}.MailConfigured())
}
