// Package domain defines the core business entities for docwatch.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - DocumentMetadata: A modification snapshot fetched from the provider
//   - TrackedDocument: A watched document and its last known state
//   - ChangeDetectionResult: The classification of one observation
//   - ChangeAuditRecord: An append-only audit row for a detected change
//   - PollingMetrics: Process-lifetime poller health counters
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
