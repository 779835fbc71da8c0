// Package notify provides driven.Notifier implementations that are not tied
// to a Google API: an HTTP webhook notifier and a Router that dispatches on
// the destination scheme.
package notify
