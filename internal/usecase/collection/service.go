package collection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/textupsert/internal/domain"
	"github.com/kailas-cloud/textupsert/internal/domain/metadata"
)

const (
	// MaxSamples is the number of sample documents returned by Info.
	MaxSamples = 5
	// PreviewLength is the sample document length in characters before truncation.
	PreviewLength = 200
)

// Sample is one record shown by Info.
type Sample struct {
	ID       string
	Document string
	Metadata metadata.Metadata
}

// Info describes the target collection.
type Info struct {
	CollectionName string
	DocumentCount  int
	Samples        []Sample
}

// Service provides read-only collection introspection.
type Service struct {
	state   StateReader
	timeout time.Duration
}

// New creates a collection service. timeout bounds each store call; zero disables it.
func New(state StateReader, timeout time.Duration) *Service {
	return &Service{state: state, timeout: timeout}
}

// Info returns the collection name, its record count and up to MaxSamples
// records with truncated documents.
func (s *Service) Info(ctx context.Context) (Info, error) {
	st, ok := s.state.State()
	if !ok {
		return Info{}, domain.ErrServiceUnavailable
	}
	col := st.Collection

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	count, err := col.Count(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("count documents: %w", storeErr(err))
	}

	recs, err := col.Peek(ctx, MaxSamples)
	if err != nil {
		return Info{}, fmt.Errorf("peek documents: %w", storeErr(err))
	}
	if len(recs) > MaxSamples {
		recs = recs[:MaxSamples]
	}

	samples := make([]Sample, len(recs))
	for i, r := range recs {
		samples[i] = Sample{ID: r.ID(), Document: r.Preview(PreviewLength), Metadata: r.Metadata()}
	}

	return Info{CollectionName: col.Name(), DocumentCount: count, Samples: samples}, nil
}

func storeErr(err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}
