package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Ollama    OllamaConfig    `yaml:"ollama" mapstructure:"ollama"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Ledger    LedgerConfig    `yaml:"ledger" mapstructure:"ledger"`
	Sectors   SectorsConfig   `yaml:"sectors" mapstructure:"sectors"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Email     EmailConfig     `yaml:"email" mapstructure:"email"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// SearchConfig selects the search backend and holds its credentials.
type SearchConfig struct {
	// Provider is not validated here: an unusable backend skips every
	// sector instead of failing the run.
	Provider       string `yaml:"provider" mapstructure:"provider"`
	SerpAPIKey     string `yaml:"serpapi_key" mapstructure:"serpapi_key"`
	SerpAPIBaseURL string `yaml:"serpapi_base_url" mapstructure:"serpapi_base_url"`
	SerperKey      string `yaml:"serper_key" mapstructure:"serper_key"`
	SerperBaseURL  string `yaml:"serper_base_url" mapstructure:"serper_base_url"`
	PageSize       int    `yaml:"page_size" mapstructure:"page_size" validate:"min=1,max=10"`
	Country        string `yaml:"country" mapstructure:"country"`
	Language       string `yaml:"language" mapstructure:"language"`
}

// APIKey returns the key of the selected search backend.
func (s SearchConfig) APIKey() string {
	switch s.Provider {
	case "serpapi":
		return s.SerpAPIKey
	case "serper":
		return s.SerperKey
	default:
		return ""
	}
}

// KeyEnv returns the environment variable an operator should set for the
// selected backend's key.
func (s SearchConfig) KeyEnv() string {
	switch s.Provider {
	case "serper":
		return "SERPER_API_KEY"
	default:
		return "SERPAPI_API_KEY"
	}
}

// LLMConfig selects the classification/extraction backend.
type LLMConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider" validate:"oneof=openai gemini ollama anthropic"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	// ComposeEmail lets the notifier ask the oracle for the message body.
	ComposeEmail bool `yaml:"compose_email" mapstructure:"compose_email"`
}

// OpenAIConfig holds settings for any OpenAI-compatible chat completions API.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// GeminiConfig holds Google Gemini settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// OllamaConfig holds settings for a local or hosted Ollama server.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
	Key     string `yaml:"key" mapstructure:"key"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// FetchConfig configures the company page fetcher.
type FetchConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider" validate:"oneof=local jina chain"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs" validate:"min=1"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyKB   int    `yaml:"max_body_kb" mapstructure:"max_body_kb"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// LedgerConfig locates the spreadsheet holding accepted leads.
type LedgerConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// SectorsConfig supplies the ordered sector list.
type SectorsConfig struct {
	File string   `yaml:"file" mapstructure:"file"`
	List []string `yaml:"list" mapstructure:"list"`
}

// PipelineConfig configures the sweep.
type PipelineConfig struct {
	// Limit caps processed items per sector; 0 means unlimited.
	Limit int `yaml:"limit" mapstructure:"limit" validate:"min=0"`
	// MaxWriteFailures aborts the run after this many consecutive ledger
	// write failures; 0 never aborts.
	MaxWriteFailures int `yaml:"max_write_failures" mapstructure:"max_write_failures" validate:"min=0"`
	// MaxHTMLChars bounds the page markup sent to the extraction oracle.
	MaxHTMLChars int `yaml:"max_html_chars" mapstructure:"max_html_chars" validate:"min=0"`
}

// EmailConfig holds SMTP credentials and the report recipient.
type EmailConfig struct {
	User       string `yaml:"user" mapstructure:"user"`
	Password   string `yaml:"password" mapstructure:"password"`
	SMTPServer string `yaml:"smtp_server" mapstructure:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port" mapstructure:"smtp_port"`
	Recipient  string `yaml:"recipient" mapstructure:"recipient"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver" validate:"oneof=sqlite postgres none"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the status API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// legacyEnv maps config keys to the un-prefixed variable names used by
// existing .env files.
var legacyEnv = map[string]string{
	"search.provider":    "SEARCH_PROVIDER",
	"search.serpapi_key": "SERPAPI_API_KEY",
	"search.serper_key":  "SERPER_API_KEY",
	"llm.provider":       "LLM_PROVIDER",
	"openai.key":         "OPENAI_API_KEY",
	"openai.base_url":    "OPENAI_BASE_URL",
	"openai.model":       "OPENAI_MODEL",
	"gemini.key":         "GOOGLE_API_KEY",
	"gemini.model":       "GEMINI_MODEL",
	"ollama.base_url":    "OLLAMA_BASE_URL",
	"ollama.model":       "OLLAMA_MODEL",
	"ollama.key":         "OLLAMA_API_KEY",
	"anthropic.key":      "ANTHROPIC_API_KEY",
	"email.user":         "EMAIL_USER",
	"email.password":     "EMAIL_PASSWORD",
	"email.smtp_server":  "EMAIL_SMTP_SERVER",
	"email.smtp_port":    "EMAIL_SMTP_PORT",
	"email.recipient":    "EMAIL_RECIPIENT",
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := "LEADS_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", legacy)
		}
	}

	// Defaults
	v.SetDefault("search.provider", "serpapi")
	v.SetDefault("search.serpapi_base_url", "https://serpapi.com")
	v.SetDefault("search.serper_base_url", "https://google.serper.dev")
	v.SetDefault("search.page_size", 10)
	v.SetDefault("search.country", "it")
	v.SetDefault("search.language", "it")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.timeout_secs", 60)
	v.SetDefault("llm.compose_email", true)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3.2")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 512)
	v.SetDefault("fetch.provider", "local")
	v.SetDefault("fetch.timeout_secs", 10)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("fetch.max_body_kb", 2048)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("ledger.path", "lista_aziende.xlsx")
	v.SetDefault("pipeline.limit", 0)
	v.SetDefault("pipeline.max_write_failures", 0)
	v.SetDefault("pipeline.max_html_chars", 60000)
	v.SetDefault("email.smtp_server", "smtp.gmail.com")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leads.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	cfg.Search.Provider = strings.ToLower(cfg.Search.Provider)
	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)

	return &cfg, nil
}

// Validate checks the configuration for the given command mode. Modes:
// "run", "notify", "serve", "history".
func (c *Config) Validate(mode string) error {
	var problems []string

	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s: invalid value %q (%s)", fieldKey(fe.Namespace()), fmt.Sprint(fe.Value()), fe.Tag()))
			}
		} else {
			return eris.Wrap(err, "config: validate")
		}
	}

	switch mode {
	case "run":
		if c.Ledger.Path == "" {
			problems = append(problems, "ledger.path is required")
		}
		problems = append(problems, c.oracleProblems()...)
	case "notify":
		if c.Ledger.Path == "" {
			problems = append(problems, "ledger.path is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "history":
		if c.Store.Driver == "none" {
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if (c.Store.Driver == "sqlite" || c.Store.Driver == "postgres") && c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// oracleProblems reports missing credentials for the selected LLM backend.
func (c *Config) oracleProblems() []string {
	switch c.LLM.Provider {
	case "gemini":
		if c.Gemini.Key == "" {
			return []string{"gemini.key is required (GOOGLE_API_KEY)"}
		}
	case "anthropic":
		if c.Anthropic.Key == "" {
			return []string{"anthropic.key is required (ANTHROPIC_API_KEY)"}
		}
	case "openai":
		if c.OpenAI.BaseURL == "" {
			return []string{"openai.base_url is required"}
		}
	case "ollama":
		if c.Ollama.BaseURL == "" {
			return []string{"ollama.base_url is required"}
		}
	}
	return nil
}

// MailConfigured reports whether SMTP credentials are present.
func (e EmailConfig) MailConfigured() bool {
	return e.User != "" && e.Password != ""
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
	})
	return v
}

// fieldKey turns a validator namespace like "Config.search.provider" into
// "search.provider" (struct fields are named by their mapstructure tag).
func fieldKey(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.ToLower(strings.Join(parts, "."))
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
