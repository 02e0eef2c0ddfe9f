// Package server exposes a scan session over HTTP and WebSocket.
//
// # Endpoints
//
//	GET  /api/scan         {"state", "count", "devices", "stats"}
//	POST /api/scan/start   202, same body
//	POST /api/scan/stop    202, same body
//	POST /api/scan/toggle  202, same body
//	GET  /ws               event stream
//	GET  /healthz          {"status": "ok"}
//
// Control requests are queued on the session controller, so the body of a
// 202 response reflects the state before the request took effect. Follow
// /ws or poll /api/scan for the outcome.
//
// # Event stream
//
// Each WebSocket text message is a JSON envelope:
//
//	{"type": "snapshot|state|devices|scan|error", "data": {...}}
//
// A "snapshot" is sent once on connect; the rest mirror session.Observer
// callbacks. Slow clients miss messages rather than stall the session.
//
// # TLS
//
// Set server.tls_cert and server.tls_key to serve over TLS 1.2 or later.
package server
