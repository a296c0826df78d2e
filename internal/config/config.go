package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/receiptwise/recognizer/constants"
)

// Config holds all application configuration. Loaded once at startup,
// immutable afterwards, injected where needed.
type Config struct {
	Providers   ProvidersConfig   `mapstructure:"providers"`
	Recognition RecognitionConfig `mapstructure:"recognition"`
	Queue       QueueConfig       `mapstructure:"queue"`
	Log         LogConfig         `mapstructure:"log"`
}

// ProvidersConfig holds the fallback chain and per-provider credentials.
type ProvidersConfig struct {
	// Order is the fallback chain, highest priority first.
	Order       []string      `mapstructure:"order"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`

	OCRSpace OCRSpaceConfig `mapstructure:"ocrspace"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
}

// OCRSpaceConfig holds OCR.space API settings.
type OCRSpaceConfig struct {
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	Language string `mapstructure:"language"`
	Engine   string `mapstructure:"engine"`
}

// OpenAIConfig holds OpenAI vision settings.
type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
}

// GeminiConfig holds Gemini vision settings.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// RecognitionConfig holds scoring and parsing behavior.
type RecognitionConfig struct {
	ReviewThreshold float32 `mapstructure:"review_threshold"`
	DecimalComma    bool    `mapstructure:"decimal_comma"`
}

// QueueConfig holds worker queue settings.
type QueueConfig struct {
	Workers    int           `mapstructure:"workers"`
	Size       int           `mapstructure:"size"`
	JobTimeout time.Duration `mapstructure:"job_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"` // debug | info | warn | error
}

// Load reads configuration from an optional config.yaml plus RECOGNIZER_*
// environment variables (e.g. RECOGNIZER_PROVIDERS_OPENAI_API_KEY).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/recognizer/")

	v.SetEnvPrefix("RECOGNIZER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; environment variables and defaults apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("providers.order", constants.DefaultProviderOrder)
	v.SetDefault("providers.call_timeout", 30*time.Second)
	v.SetDefault("providers.ocrspace.base_url", "https://api.ocr.space")
	v.SetDefault("providers.ocrspace.language", "eng")
	v.SetDefault("providers.ocrspace.engine", "2")
	v.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("providers.openai.model", "gpt-4o-mini")
	v.SetDefault("providers.openai.temperature", 0.0)
	v.SetDefault("providers.gemini.model", "gemini-1.5-flash")
	v.SetDefault("recognition.review_threshold", 0.5)
	v.SetDefault("recognition.decimal_comma", false)
	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.size", 64)
	v.SetDefault("queue.job_timeout", 3*time.Minute)
	v.SetDefault("log.level", "info")
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if len(c.Providers.Order) == 0 {
		return fmt.Errorf("providers.order must name at least one provider")
	}
	for _, name := range c.Providers.Order {
		if !constants.IsKnownProvider(name) {
			return fmt.Errorf("unknown provider %q in providers.order", name)
		}
		if c.providerKey(name) == "" {
			return fmt.Errorf("provider %q is enabled but has no api key", name)
		}
	}
	if c.Providers.CallTimeout <= 0 {
		return fmt.Errorf("providers.call_timeout must be positive")
	}
	if c.Recognition.ReviewThreshold < 0 || c.Recognition.ReviewThreshold > 1 {
		return fmt.Errorf("recognition.review_threshold must be in [0,1]")
	}
	if c.Queue.Workers <= 0 {
		return fmt.Errorf("queue.workers must be positive")
	}
	return nil
}

func (c *Config) providerKey(name string) string {
	switch constants.Provider(constants.NormalizeProvider(name)) {
	case constants.ProviderOCRSpace:
		return c.Providers.OCRSpace.APIKey
	case constants.ProviderOpenAI:
		return c.Providers.OpenAI.APIKey
	case constants.ProviderGemini:
		return c.Providers.Gemini.APIKey
	default:
		return ""
	}
}
