// Package google provides shared infrastructure for the Google API adapters.
//
// This package contains common utilities used by the drive metadata provider
// and the gmail notifier including:
//   - Token source construction from an OAuth client file and a token file
//   - Service factories for creating Google API clients
//   - Error translation from googleapi status codes to domain errors
//   - Rate limiting to respect Google API quotas
//
// # Usage
//
//	ts, err := google.NewTokenSource(ctx, credentialsFile, tokenFile, google.DefaultScopes...)
//	svc, err := google.NewDriveService(ctx, ts)
//
// # OAuth2 Scopes
//
//   - https://www.googleapis.com/auth/drive.metadata.readonly (restricted)
//   - https://www.googleapis.com/auth/gmail.send (sensitive)
//
// For user-created internal apps, restricted scopes don't require verification.
package google
