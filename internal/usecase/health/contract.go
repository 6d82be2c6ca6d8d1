package health

import "github.com/kailas-cloud/textupsert/internal/lifecycle"

// StateReader exposes the lifecycle view consumed by health checks.
type StateReader interface {
	State() (*lifecycle.State, bool)
	Components() lifecycle.Components
}
