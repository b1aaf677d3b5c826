// Package api serves the graph engine over HTTP.
//
// # Routes
//
//	GET    /v1/ready             ready work; filters as query parameters
//	GET    /v1/blocked           items waiting on open blockers
//	GET    /v1/items/{id}        one item with its edges
//	POST   /v1/deps              add an edge {"from","to","kind"}
//	DELETE /v1/deps/{from}/{to}  remove every edge from -> to
//	GET    /v1/cycles            blocking cycles, normally empty
//	GET    /v1/swarm/{id}        wave analysis of an epic
//	GET    /v1/swarm/{id}/status per-wave progress of an epic
//	GET    /v1/graph             ?root=ID or ?all=1, &format=json|dot|text|svg
//	GET    /metrics              Prometheus exposition
//	GET    /healthz              liveness
//
// # Errors
//
// Failures are JSON objects {"code": "...", "message": "..."} with the
// status derived from the error code: NOT_FOUND is 404, CYCLE_DETECTED is
// 409, NOT_AN_EPIC and the INVALID_* codes are 400, anything else is 500.
//
// Every response carries an X-Request-ID header. A client-supplied value
// is echoed; otherwise a UUID is generated.
package api
