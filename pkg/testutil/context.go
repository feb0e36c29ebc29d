package testutil

import (
	"net/http"

	id "verity/pkg/domain"
	"verity/pkg/requestcontext"
)

// WithUserID simulates the auth middleware for an authenticated user request.
// Invalid IDs leave the request unauthenticated.
func WithUserID(req *http.Request, userID string) *http.Request {
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	ctx := requestcontext.WithUserID(req.Context(), parsed)
	ctx = requestcontext.WithActor(ctx, requestcontext.Actor{Subject: userID, Role: requestcontext.RoleUser})
	return req.WithContext(ctx)
}

// WithAdmin simulates the auth middleware for an admin request.
func WithAdmin(req *http.Request, subject string) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), requestcontext.Actor{Subject: subject, Role: requestcontext.RoleAdmin})
	return req.WithContext(ctx)
}
