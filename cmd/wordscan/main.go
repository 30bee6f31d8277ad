// Package main provides the entry point for the wordscan CLI.
//
// wordscan crawls a website from a seed URL, staying on the seed's domain,
// and reports the most frequent words of its HTML pages.
//
// Usage:
//
//	wordscan scan <url>...
//	wordscan serve
//	wordscan history [url]
//
// See --help for all available options.
package main

// main is the entry point for wordscan.
func main() {
	Execute()
}
