// Package omclient is a resilient client for the OpenMetadata catalog API:
//
//   - Credential resolution (direct token or email/password login exchange)
//   - Retries with exponential backoff for transient failures
//   - Tiered TTL caching sized by how often each resource type changes
//   - Shared connection pooling across client instances
//   - Blocking and async call surfaces over one execution core
//   - A single error taxonomy (ClientError) for every failure mode
//   - Prometheus metrics and pluggable structured logging
//
// Design goals:
//   - Small surface area – functional options configure everything
//   - Safe concurrent use of a single client instance
//   - One login flight no matter how many callers race the first request
//   - Extensibility via pluggable Logger, MetricsCollector and RetryPolicy
//
// Typical usage:
//
//	client, err := omclient.New("https://metadata.example.com",
//	    omclient.WithToken(token),
//	    omclient.WithMaxRetries(3),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	tables, err := client.Get(ctx, "tables", omclient.Params{"limit": "25"})
//
// Only transport errors and 5xx responses trigger retries by default;
// override with WithRetryPolicy. Caching is keyed by endpoint plus sorted
// query parameters and routed to a tier by resource type; search, lineage
// and usage endpoints are never cached.
package omclient
