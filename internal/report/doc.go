// Package report renders portfolio build results as plain text, JSON,
// or Markdown. Writers share one interface so the CLI can fan output
// out to the terminal and files at the same time.
package report
