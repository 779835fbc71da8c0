// Package connectors groups the adapters that talk to document hosts.
//
// The google subtree holds the shared Google client wiring (OAuth token
// source, API services, rate limiting), the Drive metadata provider and
// the Gmail notifier.
package connectors
