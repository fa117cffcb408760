package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jobmatcher/jm-portal/internal/observability/metrics"
	"github.com/jobmatcher/jm-portal/internal/observability/statsd"
	"github.com/jobmatcher/jm-portal/internal/ports"
)

// BackendStatusError is reported for a backend whose ping failed.
const BackendStatusError = "error"

// Backend names one platform service and where it is served.
type Backend struct {
	Name    string // display key, e.g. "auth"
	Service string // path segment under /api/v1, e.g. "resumes"
	BaseURL string
}

// DefaultBackends returns the platform's backend set with the given base URLs.
func DefaultBackends(authURL, resumeURL, jobURL, offerURL, companyURL string) []Backend {
	return []Backend{
		{Name: "auth", Service: "auth", BaseURL: authURL},
		{Name: "resume", Service: "resumes", BaseURL: resumeURL},
		{Name: "job", Service: "jobs", BaseURL: jobURL},
		{Name: "offer", Service: "offers", BaseURL: offerURL},
		{Name: "company", Service: "companies", BaseURL: companyURL},
	}
}

// BackendStatus is the ping result for one backend.
type BackendStatus struct {
	Name    string        `json:"name"`
	Status  string        `json:"status"`
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency_ns"`
}

// HealthServiceOptions groups dependencies for HealthService.
type HealthServiceOptions struct {
	Pinger   ports.BackendPinger // Required
	Backends []Backend
	Timeout  time.Duration // per probe; defaults to 5s
	Logger   *slog.Logger
	Metrics  statsd.Sink
}

// HealthService probes every configured backend concurrently.
type HealthService struct {
	pinger   ports.BackendPinger
	backends []Backend
	timeout  time.Duration
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewHealthService constructs a new HealthService.
func NewHealthService(opts HealthServiceOptions) *HealthService {
	if opts.Pinger == nil {
		panic("HealthService requires a BackendPinger")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		pinger:   opts.Pinger,
		backends: append([]Backend(nil), opts.Backends...),
		timeout:  timeout,
		logger:   logger.With("component", "health"),
		metrics:  opts.Metrics,
	}
}

// Status pings all backends and returns one entry per backend in
// configuration order. A failed probe reports BackendStatusError and never
// fails the whole call.
func (s *HealthService) Status(ctx context.Context) []BackendStatus {
	out := make([]BackendStatus, len(s.backends))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range s.backends {
		g.Go(func() error {
			out[i] = s.probe(gctx, b)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *HealthService) probe(ctx context.Context, b Backend) BackendStatus {
	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	body, err := s.pinger.Ping(pctx, b.BaseURL, b.Service)
	elapsed := time.Since(start)

	st := BackendStatus{Name: b.Name, Status: body, Healthy: err == nil, Latency: elapsed}
	if err != nil {
		st.Status = BackendStatusError
		s.logger.WarnContext(ctx, "backend ping failed", "backend", b.Name, "error", err)
	}
	metrics.EmitBackendProbe(s.metrics, metrics.BackendMetric{
		Backend:  b.Name,
		Healthy:  st.Healthy,
		Duration: elapsed,
	})
	return st
}
