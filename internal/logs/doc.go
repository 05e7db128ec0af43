// Package logs reads the per-run JSON log files written under the log
// directory. It finds the newest run, tails it with bounded memory and
// renders records as one-line summaries for `tunegrab logs`.
package logs
