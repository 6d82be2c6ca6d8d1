package health

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/textupsert/internal/domain"
	"github.com/kailas-cloud/textupsert/internal/lifecycle"
	"github.com/kailas-cloud/textupsert/internal/logger"
)

// Status is the health of one component or of the whole service.
type Status string

const (
	// Healthy indicates the component is present and, when probed, responding.
	Healthy Status = "healthy"
	// Unhealthy indicates the component is missing or failed its probe.
	Unhealthy Status = "unhealthy"
)

// Component names reported under "services".
const (
	EmbeddingGateway = "embedding_gateway"
	StoreClient      = "store_client"
	StoreCollection  = "store_collection"
)

// Report aggregates health check results.
type Report struct {
	Status    Status
	Timestamp time.Time
	Services  map[string]Status
}

// Options configures upstream probing.
type Options struct {
	// Probe makes Check call the embedding provider, the store and the collection.
	Probe bool
	// ProbeTimeout bounds all probes together.
	ProbeTimeout time.Duration
}

// Service coordinates health checks.
type Service struct {
	state StateReader
	opts  Options
	now   func() time.Time
}

// New creates a Service.
func New(state StateReader, opts Options) *Service {
	return &Service{state: state, opts: opts, now: time.Now}
}

// Check reports per-component health. Without probing it reflects lifecycle
// state only; with probing each present component must also answer.
func (s *Service) Check(ctx context.Context) Report {
	comp := s.state.Components()
	services := map[string]Status{
		EmbeddingGateway: statusOf(comp.EmbeddingGateway),
		StoreClient:      statusOf(comp.StoreClient),
		StoreCollection:  statusOf(comp.StoreCollection),
	}

	if st, ok := s.state.State(); ok && s.opts.Probe {
		for name, err := range s.probe(ctx, st) {
			if err != nil {
				services[name] = Unhealthy
				logger.FromContext(ctx).Warn("Health probe failed",
					zap.String("component", name), zap.Error(err))
			}
		}
	}

	status := Healthy
	for _, v := range services {
		if v != Healthy {
			status = Unhealthy
			break
		}
	}

	return Report{Status: status, Timestamp: s.now().UTC(), Services: services}
}

// probe runs the upstream checks concurrently. Every probe runs to completion
// so one failure does not hide another.
func (s *Service) probe(ctx context.Context, st *lifecycle.State) map[string]error {
	if s.opts.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ProbeTimeout)
		defer cancel()
	}

	var embErr, pingErr, countErr error
	var g errgroup.Group

	if hc, ok := st.Embedder.(domain.HealthChecker); ok {
		g.Go(func() error {
			embErr = hc.HealthCheck(ctx)
			return nil
		})
	}
	g.Go(func() error {
		pingErr = st.Store.Ping(ctx)
		return nil
	})
	g.Go(func() error {
		_, countErr = st.Collection.Count(ctx)
		return nil
	})
	_ = g.Wait()

	return map[string]error{
		EmbeddingGateway: embErr,
		StoreClient:      pingErr,
		StoreCollection:  countErr,
	}
}

func statusOf(ok bool) Status {
	if ok {
		return Healthy
	}
	return Unhealthy
}
