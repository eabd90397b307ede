// Package server is the HTTP front end of sitearchive.
//
// Routes:
//
//	POST   /api/discover          discover links for one or more base addresses
//	POST   /api/scrape            extract links chosen from a discovery session
//	GET    /api/sessions/{token}  the stored discovery session
//	DELETE /api/sessions/{token}  forget a discovery session
//	GET    /api/logs              the buffered progress lines
//	GET    /api/logs/stream       progress lines as server-sent events
//	GET    /healthz               liveness
//
// Discovery results are kept per client under an opaque token rather than
// in process-wide state, so concurrent clients do not overwrite each
// other's links.
//
// A scrape request may name an existing_dir to write into. It must lie
// below the configured output directory.
package server
