// Package store provides the destination documents are written to.
//
// Two implementations exist:
//   - Local writes files into a directory through an afero.Fs, so tests can
//     run against an in-memory filesystem.
//   - Bucket writes objects under a key prefix of a gocloud bucket (s3://,
//     gs://, file://, mem://).
//
// Both publish a document only once it has been written completely. Local
// streams into a private "<name>.<random>.part" file and renames it on
// Commit; Bucket keeps the upload pending until Commit and cancels it on
// Abort. A file that exists under its
// final name is therefore always whole, which is what makes presence a
// valid resumption signal.
package store
