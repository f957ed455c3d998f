package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"dubstudio/internal/api/server"
	v1routes "dubstudio/internal/api/v1/routes"
	"dubstudio/internal/api/v1/services"
	"dubstudio/internal/app/artifacts"
	"dubstudio/internal/app/auth"
	"dubstudio/internal/app/chat"
	"dubstudio/internal/app/chatmodel"
	"dubstudio/internal/app/dispatch"
	"dubstudio/internal/app/jobstore"
	"dubstudio/internal/app/metrics"
	"dubstudio/internal/app/model"
	"dubstudio/internal/app/notifier"
	"dubstudio/internal/app/orchestrator"
	"dubstudio/internal/app/pubsub"
	"dubstudio/internal/app/repository"
	"dubstudio/internal/app/repository/memory"
	"dubstudio/internal/app/repository/pg"
	"dubstudio/internal/app/repository/sqlite"
	"dubstudio/internal/app/speech"
	"dubstudio/internal/app/stage"
	"dubstudio/internal/config"
)

// Application is the assembled service
type Application struct {
	Config       *config.Config
	Logger       *zap.Logger
	Server       *server.Server
	Orchestrator *orchestrator.Orchestrator
	Consumer     *chat.Consumer
}

// Run serves the API, consumes the chat bus and sweeps stale pending jobs
// until ctx is cancelled or the listener fails
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wait, err := a.Consumer.Start(ctx)
	if err != nil {
		return err
	}
	go a.Orchestrator.RunSweeper(ctx, a.Config.Pipeline.SweepInterval, a.Config.Pipeline.PendingTimeout)

	serveErr := make(chan error, 1)
	go func() { serveErr <- a.Server.Start() }()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if shutdownErr := a.Server.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}

	cancel()
	wait()
	return err
}

func provideStore(cfg *config.Config, logger *zap.Logger) (repository.Store, func(), error) {
	var store repository.Store
	switch cfg.Database.Driver {
	case "memory":
		store = memory.New()
	case "postgres":
		db, err := pg.NewPostgresDB(cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		store = db
	default:
		db, err := sqlite.NewSQLiteDB(cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		store = db
	}

	if err := store.Migrate(context.Background()); err != nil {
		store.Close()
		return nil, nil, err
	}
	logger.Info("job store ready", zap.String("driver", cfg.Database.Driver))

	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close job store", zap.Error(err))
		}
	}, nil
}

func provideJobDAO(store repository.Store) repository.JobDAO { return store }

func provideChatDAO(store repository.Store) repository.ChatDAO { return store }

// provideHub fans changes out through Redis when configured, so every replica
// sees every job update and exactly one replica answers each chat message
func provideHub(cfg *config.Config, logger *zap.Logger) (pubsub.Hub, func(), error) {
	if cfg.Redis.Addr == "" {
		logger.Info("using in-process change hub")
		hub := pubsub.NewLocalHub()
		return hub, func() { hub.Close() }, nil
	}

	hub, err := pubsub.NewRedisHub(context.Background(), &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using redis change hub", zap.String("addr", cfg.Redis.Addr))
	return hub, func() { hub.Close() }, nil
}

func provideArtifactStore(cfg *config.Config, logger *zap.Logger) (artifacts.Store, error) {
	if cfg.Storage.Driver == "memory" {
		return artifacts.NewMemoryStore(strings.TrimRight(cfg.Pipeline.PublicBaseURL, "/") + "/storage"), nil
	}
	store, err := artifacts.NewMinioStore(context.Background(), artifacts.MinioConfig{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("artifact storage ready", zap.String("endpoint", cfg.Storage.Endpoint), zap.String("bucket", cfg.Storage.Bucket))
	return store, nil
}

// provideDispatcher starts workflows on Temporal when configured and otherwise
// only logs, leaving jobs to be advanced by hand-posted callbacks
func provideDispatcher(cfg *config.Config, logger *zap.Logger) (dispatch.Dispatcher, func(), error) {
	if cfg.Temporal.HostPort == "" {
		logger.Warn("TEMPORAL_HOST not set, media stages are simulated")
		return dispatch.NewSimulatedDispatcher(logger), func() {}, nil
	}

	c, err := dispatch.NewTemporalClient(dispatch.TemporalConfig{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		TaskQueue: cfg.Temporal.TaskQueue,
	})
	if err != nil {
		return nil, nil, err
	}
	return dispatch.NewTemporalDispatcher(c, cfg.Temporal.TaskQueue), c.Close, nil
}

func provideOpenAIClient(cfg *config.Config) *openai.Client {
	if cfg.AI.OpenAIKey == "" {
		return nil
	}
	return openai.NewClient(cfg.AI.OpenAIKey)
}

// provideSynthesizer returns nil without an OpenAI key; synthesis then reports Unavailable
func provideSynthesizer(cfg *config.Config, client *openai.Client, logger *zap.Logger) speech.Synthesizer {
	if client == nil {
		logger.Warn("OPENAI_API_KEY not set, text-to-speech is unavailable")
		return nil
	}
	return speech.NewOpenAISynthesizer(client, cfg.AI.TTSModel)
}

// provideCompleter returns nil when the selected provider has no key; chat
// turns then reply with an error-flagged message
func provideCompleter(cfg *config.Config, client *openai.Client, logger *zap.Logger) chatmodel.Completer {
	switch cfg.AI.ChatProvider {
	case "openai":
		if client == nil {
			logger.Warn("OPENAI_API_KEY not set, chat model is unavailable")
			return nil
		}
		return chatmodel.NewOpenAICompleter(client, cfg.AI.ChatModel)
	default:
		if cfg.AI.GeminiKey == "" {
			logger.Warn("GEMINI_API_KEY not set, chat model is unavailable")
			return nil
		}
		completer, err := chatmodel.NewGeminiCompleter(context.Background(), cfg.AI.GeminiKey, cfg.AI.ChatModel, genai.HTTPOptions{})
		if err != nil {
			logger.Error("failed to create Gemini client, chat model is unavailable", zap.Error(err))
			return nil
		}
		return completer
	}
}

func provideAuthenticator(cfg *config.Config, logger *zap.Logger) (auth.Authenticator, error) {
	if cfg.Auth.FirebaseProjectID != "" {
		return auth.NewFirebaseAuthenticator(context.Background(), cfg.Auth.FirebaseProjectID, cfg.Auth.FirebaseCredentialsFile)
	}
	if len(cfg.Auth.StaticTokens) == 0 {
		return nil, errors.New("no authenticator configured: set FIREBASE_PROJECT_ID or auth.static_tokens")
	}
	logger.Warn("using static development tokens for authentication", zap.Int("tokens", len(cfg.Auth.StaticTokens)))
	return auth.NewStaticAuthenticator(cfg.Auth.StaticTokens), nil
}

func provideCallbackURL(cfg *config.Config) stage.CallbackURLFunc {
	if cfg.Pipeline.PublicBaseURL == "" {
		return nil
	}
	base := strings.TrimRight(cfg.Pipeline.PublicBaseURL, "/")
	return func(jobID string) string {
		return fmt.Sprintf("%s/api/v1/jobs/%s/callbacks", base, url.PathEscape(jobID))
	}
}

// provideVoices picks the avatar's voice, or the target language voice for translations
func provideVoices(cfg *config.Config) stage.VoiceFunc {
	return func(job *model.Job) speech.Voice {
		v := cfg.VoiceForAvatar(job.Inputs.AvatarID)
		if job.Kind == model.KindTranslation {
			v = cfg.VoiceForLanguage(job.Inputs.TargetLang)
		}
		return speech.Voice{LanguageCode: v.LanguageCode, Name: v.Name}
	}
}

func provideStages(d dispatch.Dispatcher, synth speech.Synthesizer, store artifacts.Store, voices stage.VoiceFunc, callbackURL stage.CallbackURLFunc) orchestrator.Stages {
	return orchestrator.Stages{
		Extraction:  stage.NewAudioExtraction(d, callbackURL),
		Synthesis:   stage.NewSpeechSynthesis(synth, store, voices),
		LipSync:     stage.NewLipSync(d, callbackURL),
		Composition: stage.NewComposition(nil),
	}
}

func provideChatTurn(completer chatmodel.Completer, chatService *chat.Service, logger *zap.Logger) *stage.ChatTurn {
	return stage.NewChatTurn(completer, chatService, chatService, logger)
}

func provideServiceContainer(cfg *config.Config, jobs *services.JobServiceImpl, chatService *chat.Service, events *notifier.Notifier) *v1routes.ServiceContainer {
	return &v1routes.ServiceContainer{
		JobService:    jobs,
		ChatService:   chatService,
		EventService:  events,
		CallbackToken: cfg.Auth.CallbackToken,
	}
}

func provideSessionReader(chatService *chat.Service) notifier.SessionReader { return chatService }

func provideJobStore(dao repository.JobDAO, hub pubsub.Hub, logger *zap.Logger) *jobstore.Store {
	return jobstore.NewStore(dao, hub, logger)
}

func provideRecorder() *metrics.Recorder { return metrics.NewRecorder() }
