// Package http provides the HTTP client used to talk to the catalog and the
// data archive.
//
// This package handles:
//   - Retry with exponential backoff for 500, 502, 503 and 504 responses
//     and for connection-level failures
//   - Earthdata Login authentication (bearer token, or basic auth sent to the
//     login host during the redirect dance, with a cookie jar)
//   - Streaming a GET response into an io.Writer
//   - Classifying errors as connectivity failures
//
// # Usage
//
//	client := http.NewClient(http.Options{
//	    Timeout:       time.Minute,
//	    RetryAttempts: 5,
//	    Credentials:   creds,
//	})
//
//	n, err := client.Download(ctx, url, file)
//	if http.IsConnectionError(err) {
//	    // transient, try again in a later run
//	}
package http
