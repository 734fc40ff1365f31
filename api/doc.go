// Package api exposes a Panel over HTTP.
//
// Routes:
//
//	POST /api/chat   single-agent chat mode
//	POST /api/panel  panel of experts mode
//	GET  /healthz    liveness probe
//
// Both POST routes accept {"messages": [...], "model": "...", "providers":
// {...}, "sessionId": "..."} and answer {"reply": "...", "sessionId": "..."}.
// Failures answer {"error": "...", "category": "...", "retryable": bool}
// with a status code derived from the error category.
package api
