package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type ServiceBuilder struct {
	RuntimeConfig     Config
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorMapper       ErrorMapper
	Gateway           IdentityGateway
	TokenStore        TokenStore
	Notifier          AuthChangeNotifier
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	RefreshEnqueuer   JobEnqueuer
	Dispatcher        CommandDispatcher
	PersistenceClient any
}

type Option func(*ServiceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *ServiceBuilder) {
		b.Logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *ServiceBuilder) {
		b.LoggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *ServiceBuilder) {
		b.MetricsRecorder = recorder
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *ServiceBuilder) {
		b.ErrorMapper = mapper
	}
}

func WithGateway(gateway IdentityGateway) Option {
	return func(b *ServiceBuilder) {
		b.Gateway = gateway
	}
}

func WithTokenStore(store TokenStore) Option {
	return func(b *ServiceBuilder) {
		b.TokenStore = store
	}
}

func WithAuthChangeNotifier(notifier AuthChangeNotifier) Option {
	return func(b *ServiceBuilder) {
		b.Notifier = notifier
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *ServiceBuilder) {
		b.ConfigProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *ServiceBuilder) {
		b.OptionsResolver = resolver
	}
}

func WithRefreshEnqueuer(enqueuer JobEnqueuer) Option {
	return func(b *ServiceBuilder) {
		b.RefreshEnqueuer = enqueuer
	}
}

func WithCommandDispatcher(dispatcher CommandDispatcher) Option {
	return func(b *ServiceBuilder) {
		b.Dispatcher = dispatcher
	}
}

func WithPersistenceClient(client any) Option {
	return func(b *ServiceBuilder) {
		b.PersistenceClient = client
	}
}

func DefaultServiceBuilder(runtime Config) ServiceBuilder {
	loggerProvider, logger := glog.Resolve("authflow", nil, nil)
	return ServiceBuilder{
		RuntimeConfig:   runtime,
		LoggerProvider:  loggerProvider,
		Logger:          logger,
		MetricsRecorder: NopMetricsRecorder{},
		ErrorMapper:     defaultErrorMapper,
		ConfigProvider:  NewCfgxConfigProvider(nil),
		OptionsResolver: GoOptionsResolver{},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return authErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	set := func(key, value string) {
		if includeZero || strings.TrimSpace(value) != "" {
			layer[key] = value
		}
	}

	set("lang", cfg.Lang)
	set("default_redirect", cfg.DefaultRedirect)
	set("sign_in_path", cfg.SignInPath)
	set("link_expired_path", cfg.LinkExpiredPath)
	set("delete_success_path", cfg.DeleteSuccessPath)
	set("reset_password_path", cfg.ResetPasswordPath)
	set("verify_email_path", cfg.VerifyEmailPath)
	set("callback_path", cfg.CallbackPath)
	set("base_url", cfg.BaseURL)
	set("storage_key", cfg.StorageKey)
	set("token_param", cfg.TokenParam)
	set("unlink_provider", cfg.UnlinkProvider)
	if includeZero || len(cfg.BootstrapExcludedPaths) > 0 {
		layer["bootstrap_excluded_paths"] = append([]string(nil), cfg.BootstrapExcludedPaths...)
	}
	return layer
}
