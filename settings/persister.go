package settings

import "context"

// Record is the persisted form of a single setting value.
type Record struct {
	PathID string
	Type   Type
	Value  string
}

// Persister stores setting values outside the process.
// Save must commit all given records atomically.
type Persister interface {
	Load(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, records []Record) error
}
