package journal

import "context"

// Connector is a storage driver for the deployment journal. Implementations
// own their schema bootstrap and dialect-specific SQL.
type Connector interface {
	Load(config map[string]interface{}) error
	Validate() error
	Connect() error
	Ensure() error
	Record(ctx context.Context, rec Record) (int64, error)
	List(ctx context.Context, environment string, limit int) ([]Record, error)
	Close() error
}
