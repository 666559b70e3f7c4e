// Package database stores finished portfolio reports in a local SQLite
// file so builds can be listed, replayed, and compared over time.
package database
