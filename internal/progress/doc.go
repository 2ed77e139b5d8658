// Package progress provides progress reporting for granule batches.
//
// This package outputs human-readable progress information, including
// completed and failed granule counts, transferred bytes and speed.
//
// # Usage
//
//	reporter := progress.NewReporter(Options{
//	    Collection:    "SWOT_L2_HR_Raster_D",
//	    TotalGranules: len(granules),
//	    Output:        os.Stderr,
//	})
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	reporter.GranuleStarted()
//	reporter.BytesWritten(n)
//	reporter.GranuleCompleted()
//
// # Output Format
//
//	[swot] Fetching: SWOT_L2_HR_Raster_D | Granules: 12 | Size: 3.10 GiB
//	[swot] Progress: 5/12 granules | 1 failed | 1.27 GiB | Speed: 48.0 MiB/s
package progress
