// Package podaac drives the podaac-data-downloader command line tool.
//
// A Request is checked with Validate, which reports every problem it finds
// rather than stopping at the first. Args turns a valid Request into the
// tool's argument list, and Invoker.Run does both before starting the tool,
// streaming its output into the logger line by line.
//
// The tool itself does the catalog search and the transfer; this package
// never talks to the network.
package podaac
