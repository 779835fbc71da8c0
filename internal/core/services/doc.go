// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The change pipeline is split into a pure detector (Detect), a
// read-through metadata cache with bounded retry (MetadataFetcher), and
// the poller that fans work out across tracked documents (Poller).
package services
