// Package census captures and persists point-in-time snapshots of a collector.
//
// A census records generation sizes, running counts, cumulative statistics, the
// long-lived counters, a histogram of the garbage list by type, and trash stack
// watermarks. It is meant for offline leak hunting: take a census before and after a
// workload, write both to disk, and compare them.
//
// # File Format
//
//	magic "CGCS" | version uint8 | compression uint8 | codec name (uint8 length + bytes)
//	| uncompressed size uint32 | stored size uint32 | body
//
// A stored size of zero means the body was written uncompressed because compression
// did not pay off.
package census
