// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error responses,
// and request parameter parsing shared by all handler packages.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteSuccess(w, result)
//	httputil.WriteCreated(w, resource)
//
// Error responses:
//
//	httputil.WriteAppError(w, err) // maps apperr kinds to status codes
//	httputil.WriteBadRequest(w, "Invalid input")
//	httputil.WriteUnauthorized(w, "Authentication required")
//	httputil.WriteForbidden(w, "Insufficient permissions")
//
// # Request Parsing
//
// JSON parsing:
//
//	var req CreateGroupRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// Path and query parameters:
//
//	id, ok := httputil.ParsePathStringOrError(w, r, "groupID")
//	limit, err := httputil.ParseQueryInt(r, "limit", 20)
//	start, err := httputil.ParseQueryDate(r, "startDate")
//
// # Related Packages
//
//   - pkg/middleware: Authentication and rate limiting middleware
//   - pkg/apperr: The error taxonomy WriteAppError maps from
package httputil
