// Package upload implements the resumable video upload protocol used by the
// YouTube Data API v3.
//
// An upload opens a session with a metadata POST, then PUTs the file in
// fixed-size chunks. The server acknowledges each chunk with 308 and a Range
// header; the next chunk always starts at the offset the server reports. The
// cancellation token is polled before every chunk. A failed chunk ends the
// upload: retries are the caller's decision.
package upload
