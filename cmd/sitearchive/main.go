// Package main provides the entry point for the sitearchive CLI.
//
// sitearchive discovers the pages of a website below a base address and
// saves the readable text of the pages you pick as plain-text files.
//
// Usage:
//
//	sitearchive scrape <base-url>
//	sitearchive discover <base-url>
//	sitearchive serve --addr 127.0.0.1:8080
//
// See --help for all available options.
package main

func main() {
	Execute()
}
