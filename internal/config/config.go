package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration. It is read from an optional YAML
// file and then overridden by environment variables.
type Config struct {
	Environment string         `yaml:"environment"`
	Server      ServerConfig   `yaml:"server"`
	Database    DatabaseConfig `yaml:"database"`
	Storage     StorageConfig  `yaml:"storage"`
	Redis       RedisConfig    `yaml:"redis"`
	Temporal    TemporalConfig `yaml:"temporal"`
	Auth        AuthConfig     `yaml:"auth"`
	AI          AIConfig       `yaml:"ai"`
	Voices      VoiceConfig    `yaml:"voices"`
	Pipeline    PipelineConfig `yaml:"pipeline"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DatabaseConfig selects the job and chat store backend
type DatabaseConfig struct {
	// Driver is one of "sqlite3", "postgres" or "memory"
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// StorageConfig configures artifact storage
type StorageConfig struct {
	// Driver is one of "minio" or "memory"
	Driver    string `yaml:"driver"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// RedisConfig enables cross-process change fan-out when Addr is set
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// TemporalConfig enables workflow dispatch when HostPort is set
type TemporalConfig struct {
	HostPort  string `yaml:"host_port"`
	Namespace string `yaml:"namespace"`
	TaskQueue string `yaml:"task_queue"`
}

// AuthConfig configures caller authentication
type AuthConfig struct {
	FirebaseProjectID       string `yaml:"firebase_project_id"`
	FirebaseCredentialsFile string `yaml:"firebase_credentials_file"`
	// StaticTokens maps bearer tokens to user ids for local development
	StaticTokens map[string]string `yaml:"static_tokens"`
	// CallbackToken authenticates stage completion callbacks from workers
	CallbackToken string `yaml:"callback_token"`
}

// AIConfig configures the external AI capabilities
type AIConfig struct {
	OpenAIKey    string `yaml:"-"`
	GeminiKey    string `yaml:"-"`
	ChatProvider string `yaml:"chat_provider"`
	ChatModel    string `yaml:"chat_model"`
	TTSModel     string `yaml:"tts_model"`
}

// Voice selects a synthesis voice
type Voice struct {
	LanguageCode string `yaml:"language_code"`
	Name         string `yaml:"name"`
}

// VoiceConfig is the voice catalog
type VoiceConfig struct {
	Default   Voice            `yaml:"default"`
	Avatars   map[string]Voice `yaml:"avatars"`
	Languages map[string]Voice `yaml:"languages"`
}

// PipelineConfig tunes job orchestration
type PipelineConfig struct {
	PendingTimeout time.Duration `yaml:"pending_timeout"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	// PublicBaseURL is used to build callback URLs handed to workers
	PublicBaseURL string `yaml:"public_base_url"`
}

// Default returns a configuration populated with defaults only
func Default() *Config {
	return &Config{
		Environment: DefaultEnvironment,
		Server: ServerConfig{
			Host:         DefaultHost,
			Port:         DefaultHTTPPort,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
			IdleTimeout:  DefaultIdleTimeout,
		},
		Database: DatabaseConfig{
			Driver: DefaultDatabaseDriver,
			DSN:    DefaultSQLitePath,
		},
		Storage: StorageConfig{
			Driver:   DefaultStorageDriver,
			Endpoint: DefaultMinioEndpoint,
			Bucket:   DefaultMinioBucket,
		},
		Temporal: TemporalConfig{
			Namespace: DefaultTemporalNamespace,
			TaskQueue: DefaultTaskQueue,
		},
		AI: AIConfig{
			ChatProvider: DefaultChatProvider,
			TTSModel:     DefaultTTSModel,
		},
		Voices: VoiceConfig{
			Default: Voice{LanguageCode: DefaultVoiceLanguage, Name: DefaultVoiceName},
		},
		Pipeline: PipelineConfig{
			PendingTimeout: DefaultPendingTimeout,
			SweepInterval:  DefaultSweepInterval,
		},
	}
}

// Load reads the YAML file at path (if it exists) over the defaults and then
// applies environment overrides. An empty path uses DUBSTUDIO_CONFIG or config.yaml.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getEnv("DUBSTUDIO_CONFIG", DefaultConfigFile)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	keys, err := GetAPIKeys()
	if err != nil {
		return nil, err
	}
	cfg.AI.OpenAIKey = keys.OpenAI
	cfg.AI.GeminiKey = keys.Gemini

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("APP_ENV", c.Environment)

	c.Server.Host = getEnv("HOST", c.Server.Host)
	c.Server.Port = getEnv("PORT", c.Server.Port)

	c.Database.Driver = getEnv("DATABASE_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DATABASE_URL", c.Database.DSN)

	c.Storage.Driver = getEnv("STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.Endpoint = getEnv("MINIO_ENDPOINT", c.Storage.Endpoint)
	c.Storage.AccessKey = getEnv("MINIO_ACCESS_KEY", c.Storage.AccessKey)
	c.Storage.SecretKey = getEnv("MINIO_SECRET_KEY", c.Storage.SecretKey)
	c.Storage.Bucket = getEnv("MINIO_BUCKET", c.Storage.Bucket)
	c.Storage.UseSSL = getEnvBool("MINIO_USE_SSL", c.Storage.UseSSL)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)

	c.Temporal.HostPort = getEnv("TEMPORAL_HOST", c.Temporal.HostPort)
	c.Temporal.Namespace = getEnv("TEMPORAL_NAMESPACE", c.Temporal.Namespace)
	c.Temporal.TaskQueue = getEnv("TASK_QUEUE", c.Temporal.TaskQueue)

	c.Auth.FirebaseProjectID = getEnv("FIREBASE_PROJECT_ID", c.Auth.FirebaseProjectID)
	c.Auth.FirebaseCredentialsFile = getEnv("FIREBASE_CREDENTIALS_FILE", c.Auth.FirebaseCredentialsFile)
	c.Auth.CallbackToken = getEnv("CALLBACK_TOKEN", c.Auth.CallbackToken)

	c.AI.ChatProvider = getEnv("CHAT_PROVIDER", c.AI.ChatProvider)
	c.AI.ChatModel = getEnv("CHAT_MODEL", c.AI.ChatModel)
	c.AI.TTSModel = getEnv("TTS_MODEL", c.AI.TTSModel)

	c.Pipeline.PendingTimeout = getEnvDuration("PENDING_TIMEOUT", c.Pipeline.PendingTimeout)
	c.Pipeline.SweepInterval = getEnvDuration("SWEEP_INTERVAL", c.Pipeline.SweepInterval)
	c.Pipeline.PublicBaseURL = getEnv("PUBLIC_BASE_URL", c.Pipeline.PublicBaseURL)

	if c.AI.ChatModel == "" {
		if c.AI.ChatProvider == "openai" {
			c.AI.ChatModel = DefaultOpenAIModel
		} else {
			c.AI.ChatModel = DefaultGeminiModel
		}
	}
}

// Validate checks the configuration for values that would break startup
func (c *Config) Validate() error {
	if err := ValidatePort(c.Server.Port, "server"); err != nil {
		return err
	}
	if err := ValidateOneOf(c.Database.Driver, "database.driver", "sqlite3", "postgres", "memory"); err != nil {
		return err
	}
	if c.Database.Driver != "memory" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for driver %s", c.Database.Driver)
	}
	if err := ValidateOneOf(c.Storage.Driver, "storage.driver", "minio", "memory"); err != nil {
		return err
	}
	if c.Storage.Driver == "minio" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required for the minio driver")
	}
	if err := ValidateOneOf(c.AI.ChatProvider, "ai.chat_provider", "gemini", "openai"); err != nil {
		return err
	}
	if err := ValidateTimeout(c.Pipeline.PendingTimeout, 24*time.Hour, "pipeline.pending_timeout"); err != nil {
		return err
	}
	if err := ValidateTimeout(c.Pipeline.SweepInterval, c.Pipeline.PendingTimeout, "pipeline.sweep_interval"); err != nil {
		return err
	}
	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// VoiceForAvatar returns the configured voice for an avatar, or the default
func (c *Config) VoiceForAvatar(avatarID string) Voice {
	if v, ok := c.Voices.Avatars[avatarID]; ok {
		return v
	}
	return c.Voices.Default
}

// VoiceForLanguage returns the configured voice for a target language, or the default
func (c *Config) VoiceForLanguage(lang string) Voice {
	if v, ok := c.Voices.Languages[lang]; ok {
		return v
	}
	return Voice{LanguageCode: lang, Name: c.Voices.Default.Name}
}
