// Package finalize turns a finished yt-dlp run into a library entry.
//
// It reads the info JSON sidecar, derives a safe file name from the title,
// relocates the audio file into the library (copying and verifying when the
// staging area lives on another filesystem) and returns the catalog record.
package finalize
