// Package table holds the columnar numeric tables that videotable converts
// and the SQLite-backed store used to read and write them.
//
// Each column carries a kind (float or int) and its values as float64, with
// NaN standing in for SQL NULL. A table file is a SQLite database with a
// single table (named "data" by default) whose declared column types are REAL
// or INTEGER, so a round trip through the store preserves column kinds.
package table
