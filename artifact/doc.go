// Package artifact downloads release archives, verifies their integrity and
// extracts the binaries they carry.
//
// Fetching, verifying and extracting are separate calls; nothing is extracted
// from an archive that didn't pass verification first:
//
//	fetcher := artifact.NewFetcher(artifact.WithProgress(true))
//	if err := fetcher.Fetch(ctx, src.URL, archive); err != nil {
//		return err
//	}
//
//	if err := artifact.NewVerifier().Verify(archive, src.SHA256); err != nil {
//		return err // integrity failure
//	}
//
//	_, err := artifact.Extract(archive, "apigeecli", bindir)
//	return err
package artifact
