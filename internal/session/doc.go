// Package session keeps the links found by discovery until the client
// that asked for them chooses which pages to extract.
//
// Sessions are keyed by a random UUID token handed back to the client.
package session
