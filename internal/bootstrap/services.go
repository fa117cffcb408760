package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jobmatcher/jm-portal/config"
	"github.com/jobmatcher/jm-portal/internal/adapters/backendping"
	"github.com/jobmatcher/jm-portal/internal/observability/statsd"
	"github.com/jobmatcher/jm-portal/internal/service"
)

// ServiceContainer holds the process-wide services.
type ServiceContainer struct {
	Sessions *service.SessionService
	Auth     *service.AuthService
	Health   *service.HealthService
	// OAuthEnabled reports whether the auth mode supports redirect login.
	OAuthEnabled bool

	slots   *SlotStore
	metrics *statsd.Client
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config *config.AppConfig
	Logger *slog.Logger
}

// BuildServices connects the session slot, builds the auth adapters, and
// seeds the session container from the persisted session. It does not
// hydrate; callers run Sessions.Start when they are ready.
func BuildServices(ctx context.Context, deps ServiceDeps) (*ServiceContainer, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics := buildMetrics(logger, cfg.Observability.Metrics)

	slots, err := BuildSlotStore(ctx, SlotStoreConfig{Storage: cfg.Storage, Logger: logger})
	if err != nil {
		return nil, err
	}

	adapters, err := BuildAuthAdapters(AuthConfig{Auth: cfg.Auth, Backends: cfg.Backends, Logger: logger})
	if err != nil {
		if closeErr := slots.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
		return nil, err
	}

	c := &ServiceContainer{slots: slots, metrics: metrics}
	c.wire(ctx, cfg, adapters, logger)
	return c, nil
}

func (c *ServiceContainer) wire(ctx context.Context, cfg *config.AppConfig, adapters AuthAdapters, logger *slog.Logger) {
	// A nil *statsd.Client must not reach the services as a non-nil Sink.
	var sink statsd.Sink
	if c.metrics != nil {
		sink = c.metrics
	}

	store := service.NewSessionStore(service.SessionStoreOptions{
		Slots:  c.slots.Slots,
		Key:    cfg.Storage.SlotKey,
		Logger: logger,
	})
	c.Sessions = service.NewSessionService(ctx, service.SessionServiceOptions{
		Store:    store,
		Verifier: adapters.Verifier,
		Config: service.SessionServiceConfig{
			RefreshTimeout: cfg.Auth.RefreshTimeout,
			Logger:         logger,
			Metrics:        sink,
		},
	})
	c.Auth = service.NewAuthService(service.AuthServiceOptions{
		Authenticator: adapters.Authenticator,
		Sessions:      c.Sessions,
		Provider:      adapters.Provider,
	})
	c.Health = service.NewHealthService(service.HealthServiceOptions{
		Pinger: backendping.New(nil),
		Backends: service.DefaultBackends(
			cfg.Backends.AuthURL,
			cfg.Backends.ResumeURL,
			cfg.Backends.JobURL,
			cfg.Backends.OfferURL,
			cfg.Backends.CompanyURL,
		),
		Logger:  logger,
		Metrics: sink,
	})
	c.OAuthEnabled = adapters.Provider != nil
}

// Close releases the slot backend and the metrics socket.
func (c *ServiceContainer) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if err := c.slots.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close session store: %w", err))
	}
	if c.metrics != nil {
		if err := c.metrics.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}

// buildMetrics returns a statsd client when metrics are enabled.
func buildMetrics(logger *slog.Logger, cfg config.ObservabilityMetricsConfig) *statsd.Client {
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}
