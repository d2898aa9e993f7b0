package health

import "context"

// StorePinger checks document store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ModelChecker checks model provider availability.
type ModelChecker interface {
	HealthCheck(ctx context.Context) error
}

// TextSearchProber reports whether the store's full-text module is loaded.
type TextSearchProber interface {
	SupportsTextSearch(ctx context.Context) bool
}
