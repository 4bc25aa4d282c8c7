// package copier implements the playlist duplication pipeline.
//
// [Copier] orchestrates one duplication run: resolve the playlist
// reference, obtain a valid access token, read the source metadata,
// create the destination playlist, collect every source track across
// paginated reads, add them in order in provider-sized batches, and
// best-effort copy the cover image. Operations emit progress updates
// via channels for non-blocking status reporting to the web/CLI layers.
//
// Failures after authentication carry the pipeline stage via
// [StageError]; already-completed steps are never rolled back, so a
// partially populated destination playlist is left as-is and reported.
package copier
