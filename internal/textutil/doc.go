// Package textutil provides filename sanitization for library paths.
//
// SanitizeFileName turns free-form media titles into a single safe path
// segment; SanitizeToken produces lowercase identifiers for log keys and
// temporary names.
package textutil
