// Package authflow wires the callback resolution and session bootstrap
// runtime: credential vault, session store, callback resolver, bootstrap
// coordinator, and the sync loop, built over a pluggable identity gateway.
package authflow

import (
	"context"
	"fmt"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-authflow/bootstrap"
	"github.com/goliatone/go-authflow/callback"
	"github.com/goliatone/go-authflow/command"
	"github.com/goliatone/go-authflow/core"
	"github.com/goliatone/go-authflow/gateway"
	"github.com/goliatone/go-authflow/session"
	sqlstore "github.com/goliatone/go-authflow/store/sql"
	authsync "github.com/goliatone/go-authflow/sync"
	"github.com/goliatone/go-authflow/vault"
)

// Service is the composed runtime. All collaborators are resolved once at
// construction; callers interact through the service surface or the
// accessors for the individual components.
type Service struct {
	config          core.Config
	logger          core.Logger
	loggerProvider  core.LoggerProvider
	metricsRecorder core.MetricsRecorder
	errorMapper     core.ErrorMapper
	configProvider  core.ConfigProvider
	optionsResolver core.OptionsResolver

	gateway     core.IdentityGateway
	tokenStore  core.TokenStore
	vault       *vault.Vault
	sessions    *session.Store
	teams       *callback.TeamDirectory
	resolver    *callback.Resolver
	coordinator *bootstrap.Coordinator
	loop        *authsync.Loop

	notifier          core.AuthChangeNotifier
	enqueuer          core.JobEnqueuer
	dispatcher        core.CommandDispatcher
	persistenceClient any
}

// ServiceDependencies exposes the resolved collaborators for callers that
// need to compose additional behavior around the runtime.
type ServiceDependencies struct {
	Logger            core.Logger
	LoggerProvider    core.LoggerProvider
	MetricsRecorder   core.MetricsRecorder
	ErrorMapper       core.ErrorMapper
	ConfigProvider    core.ConfigProvider
	OptionsResolver   core.OptionsResolver
	Gateway           core.IdentityGateway
	TokenStore        core.TokenStore
	Notifier          core.AuthChangeNotifier
	RefreshEnqueuer   core.JobEnqueuer
	Dispatcher        core.CommandDispatcher
	PersistenceClient any
}

func NewService(cfg core.Config, options ...core.Option) (*Service, error) {
	builder := core.DefaultServiceBuilder(cfg)
	for _, option := range options {
		if option == nil {
			continue
		}
		option(&builder)
	}

	provider, logger := glog.Resolve("authflow", builder.LoggerProvider, builder.Logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("authflow"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.MetricsRecorder == nil {
		builder.MetricsRecorder = core.NopMetricsRecorder{}
	}
	if builder.ConfigProvider == nil {
		builder.ConfigProvider = core.NewCfgxConfigProvider(nil)
	}
	if builder.OptionsResolver == nil {
		builder.OptionsResolver = core.GoOptionsResolver{}
	}

	defaults := core.DefaultConfig()
	loaded, err := builder.ConfigProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, err
	}
	finalConfig, err := builder.OptionsResolver.Resolve(defaults, loaded, builder.RuntimeConfig)
	if err != nil {
		return nil, err
	}

	tokenStore := builder.TokenStore
	if tokenStore == nil && builder.PersistenceClient != nil {
		factory := sqlstore.NewRepositoryFactory()
		if buildErr := factory.BuildStores(builder.PersistenceClient, finalConfig.StorageKey); buildErr != nil {
			return nil, buildErr
		}
		tokenStore = factory.TokenStore()
	}

	credentialVault := vault.New(tokenStore, logger)
	sessions := session.New(credentialVault, logger)

	identityGateway := builder.Gateway
	if identityGateway == nil {
		if strings.TrimSpace(finalConfig.BaseURL) == "" {
			return nil, fmt.Errorf("authflow: an identity gateway or a base url is required")
		}
		identityGateway, err = gateway.NewHTTPGateway(gateway.HTTPGatewayDeps{
			BaseURL:     finalConfig.BaseURL,
			Credentials: credentialVault,
			OnUnauthorized: func(ctx context.Context) {
				sessions.HandleUnauthorized(ctx)
			},
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
	}

	cacheService, err := newTeamNameCache()
	if err != nil {
		return nil, err
	}
	teams, err := callback.NewTeamDirectory(identityGateway, cacheService)
	if err != nil {
		return nil, err
	}

	coordinator, err := bootstrap.NewCoordinator(bootstrap.CoordinatorDeps{
		Gateway:  identityGateway,
		Sessions: sessions,
		Logger:   logger,
		Metrics:  builder.MetricsRecorder,
	})
	if err != nil {
		return nil, err
	}

	resolver, err := callback.NewResolver(callback.ResolverDeps{
		Config:       finalConfig,
		Gateway:      identityGateway,
		Sessions:     sessions,
		Vault:        credentialVault,
		Teams:        teams,
		Bootstrapper: coordinator,
		Logger:       logger,
		Metrics:      builder.MetricsRecorder,
	})
	if err != nil {
		return nil, err
	}

	notifier := builder.Notifier
	if notifier == nil && builder.Dispatcher != nil {
		notifier = command.NewDispatchingNotifier(builder.Dispatcher, logger)
	}

	loop, err := authsync.NewLoop(authsync.LoopDeps{
		Config:      finalConfig,
		Sessions:    sessions,
		Vault:       credentialVault,
		Gateway:     identityGateway,
		Coordinator: coordinator,
		Notifier:    notifier,
		Enqueuer:    builder.RefreshEnqueuer,
		Logger:      logger,
		Metrics:     builder.MetricsRecorder,
	})
	if err != nil {
		return nil, err
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.MetricsRecorder,
		errorMapper:       builder.ErrorMapper,
		configProvider:    builder.ConfigProvider,
		optionsResolver:   builder.OptionsResolver,
		gateway:           identityGateway,
		tokenStore:        tokenStore,
		vault:             credentialVault,
		sessions:          sessions,
		teams:             teams,
		resolver:          resolver,
		coordinator:       coordinator,
		loop:              loop,
		notifier:          notifier,
		enqueuer:          builder.RefreshEnqueuer,
		dispatcher:        builder.Dispatcher,
		persistenceClient: builder.PersistenceClient,
	}, nil
}

func Setup(cfg core.Config, options ...core.Option) (*Service, error) {
	return NewService(cfg, options...)
}

func newTeamNameCache() (repositorycache.CacheService, error) {
	config := repositorycache.DefaultConfig()
	return repositorycache.NewCacheService(config)
}

func (s *Service) Config() core.Config {
	if s == nil {
		return core.Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorMapper:       s.errorMapper,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		Gateway:           s.gateway,
		TokenStore:        s.tokenStore,
		Notifier:          s.notifier,
		RefreshEnqueuer:   s.enqueuer,
		Dispatcher:        s.dispatcher,
		PersistenceClient: s.persistenceClient,
	}
}

func (s *Service) Vault() *vault.Vault {
	if s == nil {
		return nil
	}
	return s.vault
}

func (s *Service) Sessions() *session.Store {
	if s == nil {
		return nil
	}
	return s.sessions
}

func (s *Service) Resolver() *callback.Resolver {
	if s == nil {
		return nil
	}
	return s.resolver
}

func (s *Service) Coordinator() *bootstrap.Coordinator {
	if s == nil {
		return nil
	}
	return s.coordinator
}

func (s *Service) Loop() *authsync.Loop {
	if s == nil {
		return nil
	}
	return s.loop
}

func (s *Service) Teams() *callback.TeamDirectory {
	if s == nil {
		return nil
	}
	return s.teams
}

// Restore hydrates the credential vault from durable storage. Call once at
// startup before the first Observe tick.
func (s *Service) Restore(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("authflow: service is nil")
	}
	return s.vault.Restore(ctx)
}

// Observe forwards one session observation tick to the sync loop.
func (s *Service) Observe(ctx context.Context, obs authsync.Observation) {
	if s == nil {
		return
	}
	s.loop.Observe(ctx, obs)
}
