// Command tunegrab acquires audio for Bilibili videos into a local music
// library.
//
//	tunegrab fetch BV1xx411c7mD https://www.bilibili.com/video/BV1GJ411x7h7
//	tunegrab fetch --file ids.txt --concurrency 5
//	tunegrab library list
//	tunegrab check
package main
