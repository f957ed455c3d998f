package config

import "time"

// Default configuration values
const (
	DefaultEnvironment = "development"
	DefaultConfigFile  = "config.yaml"

	DefaultHost         = "0.0.0.0"
	DefaultHTTPPort     = "8080"
	DefaultReadTimeout  = 15 * time.Second
	DefaultWriteTimeout = 0 // event streams stay open
	DefaultIdleTimeout  = 60 * time.Second

	DefaultDatabaseDriver = "sqlite3"
	DefaultSQLitePath     = "data/dubstudio.db"

	DefaultStorageDriver = "minio"
	DefaultMinioEndpoint = "localhost:9000"
	DefaultMinioBucket   = "dubstudio-artifacts"

	DefaultTemporalNamespace = "default"
	DefaultTaskQueue         = "dubstudio-media-queue"

	DefaultChatProvider = "gemini"
	DefaultGeminiModel  = "gemini-2.0-flash"
	DefaultOpenAIModel  = "gpt-4o-mini"
	DefaultTTSModel     = "tts-1"

	DefaultVoiceLanguage = "en-US"
	DefaultVoiceName     = "en-US-Standard-C"

	DefaultPendingTimeout = 30 * time.Minute
	DefaultSweepInterval  = time.Minute
)
