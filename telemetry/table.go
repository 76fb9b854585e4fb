package telemetry

// Table is one namespace of the telemetry bus. Values are bool or float64.
type Table interface {
	// Path is the slash separated table path, e.g. "Mechanisms/elevator".
	Path() string
	// Sub returns the child table with the given name.
	Sub(name string) Table
	// SetDefault publishes key with value if it has no value yet. It fails if key holds a value
	// of another type.
	SetDefault(key string, value any) error
	// Put publishes value under key.
	Put(key string, value any) error
	// Get returns the current value under key.
	Get(key string) (any, bool)
	// Unpublish removes key.
	Unpublish(key string)
}
