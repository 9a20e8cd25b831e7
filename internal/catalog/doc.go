// Package catalog records every job run of a batch in a SQLite database kept
// inside the batch directory (catalog.db). The CLI status command reads it
// back; the pipeline writes one row per encode or decode attempt.
package catalog
