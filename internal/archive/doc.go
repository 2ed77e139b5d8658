// Package archive unpacks downloaded zip archives in place.
//
// Extract looks only at the immediate entries of a directory. Each archive
// is checked in full before anything is written: an entry that would land
// outside the directory rejects the whole archive with ErrUnsafePath.
// Extraction overwrites existing files, so running it twice over the same
// directory gives the same result. Archives are never removed.
package archive
