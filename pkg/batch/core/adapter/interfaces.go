// Package adapter declares what every external resource connection (database, object storage) has in common.
package adapter

// ResourceConnection represents a named connection to an external resource.
type ResourceConnection interface {
	// Close closes the resource connection.
	Close() error
	// Type returns the type of the resource (e.g., "sqlite", "gcs").
	Type() string
	// Name returns the connection name (e.g., "coffee").
	Name() string
}
