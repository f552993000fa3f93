// Package downloader fetches discovered documents in parallel.
//
// A Downloader holds the shared HTTP transport and destination store and
// runs a fixed pool of workers fed from a channel. Each job is handled
// independently:
//
//  1. If a file with the job's name already exists, the job is skipped
//     without any network activity.
//  2. Otherwise the link is fetched with a streaming GET.
//  3. Non-2xx responses fail the job.
//  4. Responses that are neither application/pdf nor
//     application/octet-stream are skipped and nothing is written.
//  5. The body is streamed to the store in fixed-size chunks and published
//     only once complete.
//
// # Usage
//
//	d := downloader.New(client, st, downloader.Options{Workers: 5})
//	for outcome := range d.Run(ctx, jobs) {
//	    // outcome.Kind, outcome.Err
//	}
//
// Every job yields exactly one Outcome. Errors, including panics inside a
// worker, are confined to the job's Outcome and never stop other workers.
package downloader
