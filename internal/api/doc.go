// Package api exposes the marketplace over HTTP: chi routes, request DTOs,
// and the mapping of service errors to status codes and {error, trace_id}
// bodies.
package api
