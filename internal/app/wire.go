//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"dubstudio/internal/api/server"
	"dubstudio/internal/api/v1/services"
	"dubstudio/internal/app/chat"
	"dubstudio/internal/app/notifier"
	"dubstudio/internal/app/orchestrator"
	"dubstudio/internal/config"
)

var storeSet = wire.NewSet(provideStore, provideJobDAO, provideChatDAO, provideHub, provideJobStore)

var stageSet = wire.NewSet(
	provideArtifactStore,
	provideDispatcher,
	provideOpenAIClient,
	provideSynthesizer,
	provideCompleter,
	provideCallbackURL,
	provideVoices,
	provideStages,
	provideChatTurn,
)

// InitializeApplication assembles the service from cfg
func InitializeApplication(cfg *config.Config, logger *zap.Logger) (*Application, func(), error) {
	wire.Build(
		storeSet,
		stageSet,
		provideRecorder,
		provideAuthenticator,
		orchestrator.New,
		chat.NewService,
		chat.NewConsumer,
		provideSessionReader,
		notifier.New,
		services.NewJobService,
		provideServiceContainer,
		server.NewServer,
		wire.Struct(new(Application), "*"),
	)
	return &Application{}, nil, nil
}
