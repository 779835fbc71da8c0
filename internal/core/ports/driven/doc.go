// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - MetadataProvider: Fetches raw modification metadata from the document host
//   - TrackingStore: Tenant-scoped tracked documents and append-only audit trail
//   - Notifier: Delivers rendered change notifications to a destination
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
