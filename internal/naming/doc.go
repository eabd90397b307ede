// Package naming derives filesystem names from web addresses: artifact
// file names, session directory names, and the sanitization rule both use.
package naming
