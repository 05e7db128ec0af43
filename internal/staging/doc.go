// Package staging inspects and prunes the per-item directories yt-dlp writes
// into under the staging root. Only directories named after a media
// identifier are touched; anything else a user keeps there is left alone.
package staging
