package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verity/internal/platform/logger"
	"verity/pkg/requestcontext"
	"verity/pkg/testutil"
)

func TestRequireAuth(t *testing.T) {
	validator := NewTokenValidator("test-key", "uslugar")
	log := logger.Discard()

	var seen requestcontext.Actor
	var seenUser string
	protected := RequireAuth(validator, log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.ActorFrom(r.Context())
		seenUser = requestcontext.UserID(r.Context()).String()
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("missing header is unauthorized", func(t *testing.T) {
		rr := testutil.DoRequest(protected, httptest.NewRequest(http.MethodGet, "/", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("token signed with another key is rejected", func(t *testing.T) {
		other := NewTokenValidator("other-key", "uslugar")
		token, err := other.Issue(uuid.NewString(), "user", time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := testutil.DoRequest(protected, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		token, err := validator.Issue(uuid.NewString(), "user", -time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := testutil.DoRequest(protected, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("valid token populates user and actor", func(t *testing.T) {
		userID := uuid.NewString()
		token, err := validator.Issue(userID, "", time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := testutil.DoRequest(protected, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, userID, seenUser)
		assert.Equal(t, requestcontext.RoleUser, seen.Role)
	})
}

func TestRequireAdmin(t *testing.T) {
	admin := RequireAdmin(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("user role is forbidden", func(t *testing.T) {
		req := testutil.WithUserID(httptest.NewRequest(http.MethodPost, "/", nil), uuid.NewString())
		rr := testutil.DoRequest(admin, req)
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})

	t.Run("admin passes", func(t *testing.T) {
		req := testutil.WithAdmin(httptest.NewRequest(http.MethodPost, "/", nil), "admin-1")
		rr := testutil.DoRequest(admin, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestRequestID_GeneratesAndEchoes(t *testing.T) {
	var got string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = requestcontext.RequestID(r.Context())
	}))

	rr := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, got)
	assert.Equal(t, got, rr.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rr = testutil.DoRequest(h, req)
	assert.Equal(t, "abc", got)
	assert.Equal(t, "abc", rr.Header().Get(RequestIDHeader))
}
