// Package ytdlp drives the yt-dlp extraction process for one media item.
//
// Client.Acquire builds the argument list from Options, runs the binary
// through an Executor, and feeds every output line to an Interpreter that
// recognizes download progress, the info json sidecar path, and the final
// audio path. Exit status 0 is the only success signal; a successful exit
// that never announced both paths is still a failure.
//
// The default executor runs the child in its own process group, merges
// stderr into stdout, optionally decodes GBK output, and kills the group on
// cancellation.
package ytdlp
