// Package sqlite provides the SQLite implementation of driven.TrackingStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations embedded from the
// migrations/ directory. The change_audit table is append-only: triggers reject
// UPDATE and DELETE statements against it.
//
// # Data Location
//
// By default, the database is stored at ~/.docwatch/data/docwatch.db
//
// # Thread Safety
//
// All operations are thread-safe. The pool is limited to one connection so
// concurrent poll workers queue on the database instead of failing with SQLITE_BUSY.
package sqlite
