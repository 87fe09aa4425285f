// Package credentials turns the installed-app OAuth client secrets and the
// stored user token into an authenticated HTTP client for uploads.
//
// Refreshed tokens are written back to the token file so the next process
// starts with a valid access token.
package credentials
