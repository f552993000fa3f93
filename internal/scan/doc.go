// Package scan ties the pipeline together for a single target page.
//
// A run proceeds strictly in order:
//
//  1. The target is validated; malformed input fails with ErrInvalidTarget
//     before any network activity.
//  2. The page is fetched and parsed. Any failure is a *PageFetchError and
//     nothing is scheduled.
//  3. Document links are extracted and assigned file names. Colliding
//     names are logged, and optionally disambiguated.
//  4. If at least one link was found the destination is opened and
//     prepared once. Failures here wrap ErrStorage.
//  5. All links are handed to the downloader pool and the outcomes are
//     collected into a report as they complete.
package scan
