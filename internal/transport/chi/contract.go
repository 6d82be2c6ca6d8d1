package chi

import (
	"context"

	collectionuc "github.com/kailas-cloud/textupsert/internal/usecase/collection"
	documentuc "github.com/kailas-cloud/textupsert/internal/usecase/document"
	healthuc "github.com/kailas-cloud/textupsert/internal/usecase/health"
)

// Upserter runs the upsert pipeline.
type Upserter interface {
	UpsertText(ctx context.Context, req documentuc.UpsertRequest) (documentuc.UpsertResult, error)
}

// CollectionInspector describes the target collection.
type CollectionInspector interface {
	Info(ctx context.Context) (collectionuc.Info, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
