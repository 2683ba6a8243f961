// Package s3store manages the S3 clients of a mounted bucket and deletes
// objects through them under rate limiting and retries.
//
// A ClientManager owns three heavyweight clients: the synchronous client
// used for metadata and delete requests, the async client tuned for bulk
// transfers, and the transfer manager built on top of the async client.
// Each is created on first demand, exactly once, and all are closed in
// parallel when the manager closes.
//
// A Store drives deletes through the manager. Every attempt first acquires
// write capacity from a rate limiter, then issues the request, and is
// repeated under a retry policy. Bulk deletes are not atomic: the outcome
// lists which keys failed, and a key reported missing by the store counts
// as deleted.
//
// Key features:
//   - Lazy, concurrency-safe client creation with creation-time statistics
//   - Idempotent, parallel teardown that never fails the caller
//   - Bulk and single-object deletes with idempotent not-found semantics
//   - Per-key throttle handling with resubmission of throttled keys only
//   - Pluggable rate limiters, retry policies and statistics sinks
//
// Example usage:
//
//	store, err := s3store.Open(&s3types.ClientCreationParameters{
//	    URI:    "s3://my-bucket",
//	    Region: "us-west-2",
//	}, s3store.WithWriteRateLimit(3500, 0))
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	outcome, err := store.DeleteObjects(ctx, &s3types.DeleteRequest{
//	    BaseKey: "data/",
//	    Keys:    []string{"data/a", "data/b"},
//	})
//	if err != nil {
//	    return err
//	}
//	for _, f := range outcome.Failed {
//	    log.Printf("could not delete %s: %s", f.Key, f.Code)
//	}
package s3store
