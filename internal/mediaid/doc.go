// Package mediaid validates and normalizes remote media identifiers.
//
// Raw user input is either a bare Bilibili BV code or a video page URL. Parse
// turns one input into a canonical ID; Collect processes a whole batch, drops
// duplicates, and reports every rejected entry with a reason. Both are pure.
package mediaid
