// Package transfer manages S3 transfers on top of the async client.
// This includes single and multipart uploads, streamed downloads and
// file transfers through a go-billy filesystem.
//
// A Manager is created by the client manager's factory, shares the async
// client's connection pool, and is closed before that client: Close stops
// new transfers and waits for the ones in flight.
package transfer
