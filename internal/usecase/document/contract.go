package document

import (
	"github.com/kailas-cloud/textupsert/internal/lifecycle"
)

// StateReader exposes the initialized service handles.
type StateReader interface {
	State() (*lifecycle.State, bool)
}
