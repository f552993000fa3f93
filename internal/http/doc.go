// Package http provides the HTTP transport shared by the page fetch and
// every download worker.
//
// This package handles:
//   - Connection pooling across workers
//   - Streaming GET requests with a fixed User-Agent
//   - Retry with exponential backoff for connection failures only
//   - Per-attempt timeouts that also bound stalls while reading the body
//
// HTTP error statuses are never retried. Fetch returns them as ordinary
// responses; Get converts them into a *StatusError.
//
// # Usage
//
//	client := http.NewClient(http.DefaultOptions())
//
//	resp, err := client.Fetch(ctx, url)
//	if err != nil {
//	    return err
//	}
//	defer resp.Body.Close()
//	// resp.StatusCode, resp.ContentType()
package http
