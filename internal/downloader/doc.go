// Package downloader fetches catalog granules into a local directory.
//
// Granules are processed one at a time, in catalog order. A failure on one
// granule is recorded in the run's Report and the batch moves on to the next
// granule; only cancellation of the context stops a batch early.
//
// # Usage
//
//	transfer := downloader.NewGranuleTransfer(logger, downloader.TransferOptions{
//	    HTTP:         httpOpts,
//	    PreferDirect: false,
//	})
//
//	report, err := downloader.Download(ctx, logger, granules, "data_downloads", downloader.Options{
//	    Transfer: transfer,
//	    Progress: reporter,
//	})
//
// # Failure classes
//
// Every granule ends in one of three states:
//   - succeeded: all of its files were written
//   - transient-failure: a connectivity problem, see http.IsConnectionError
//   - permanent-failure: anything else (missing object, checksum mismatch, ...)
//
// # Transfers
//
// GranuleTransfer writes each file to "<name>.download" and renames it once
// the body has been read completely and its checksum, when the catalog
// publishes one, matches. HTTPS links go through the retrying Earthdata
// client. s3:// and gs:// links are read with gocloud.dev/blob when
// PreferDirect is set.
package downloader
