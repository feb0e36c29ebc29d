package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"verity/internal/document"
	ratelimit "verity/internal/ratelimit/models"
	"verity/internal/trust"
	"verity/internal/verification"
	"verity/internal/verification/handler/mocks"
	id "verity/pkg/domain"
	"verity/pkg/platform/audit"
	"verity/pkg/platform/sentinel"
	"verity/pkg/testutil"
)

var testTime = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

type VerificationHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	userID  id.UserID
}

func TestVerificationHandlerSuite(t *testing.T) {
	suite.Run(t, new(VerificationHandlerSuite))
}

func (s *VerificationHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	h := New(s.service, nil, nil, 1<<20)
	r := chi.NewRouter()
	h.RegisterUser(r)
	h.RegisterAdmin(r)
	s.router = r
	s.userID = id.UserID(uuid.New())
}

func (s *VerificationHandlerSuite) asUser(req *http.Request) *http.Request {
	return testutil.WithUserID(req, s.userID.String())
}

func (s *VerificationHandlerSuite) TestUpload() {
	s.Run("passes the document and declared fields to the pipeline", func() {
		s.service.EXPECT().UploadDocument(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req verification.UploadRequest) verification.Result {
				s.Equal(s.userID, req.UserID)
				s.Equal(document.TypeIDCard, req.DocumentType)
				s.Equal([]byte("front-bytes"), req.Front)
				s.Equal([]byte("back-bytes"), req.Back)
				s.Equal("69435151530", req.Declared.TaxID)
				s.Equal("Ana Kovač", req.Declared.FullName)
				return verification.Result{Success: true, TrustScore: 50, Verified: []trust.Channel{trust.ChannelIDDocument}}
			})

		req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/verification/documents",
			map[string]string{"documentType": "ID_CARD", "declaredTaxId": "69435151530", "declaredName": "Ana Kovač"},
			testutil.MultipartFile{Field: "front", Filename: "front.jpg", Content: []byte("front-bytes")},
			testutil.MultipartFile{Field: "back", Filename: "back.jpg", Content: []byte("back-bytes")},
		)
		rr := testutil.DoRequest(s.router, s.asUser(req))

		s.Equal(http.StatusOK, rr.Code)
		body := testutil.UnmarshalResponse[verification.Result](s.T(), rr)
		s.True(body.Success)
		s.Equal(50, body.TrustScore)
	})

	s.Run("blocked document is still a 200 with findings", func() {
		s.service.EXPECT().UploadDocument(gomock.Any(), gomock.Any()).
			Return(verification.Result{Failure: verification.FailureDocumentBlocked, Messages: []string{"expired"}})

		req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/verification/documents", nil,
			testutil.MultipartFile{Field: "front", Filename: "f.pdf", Content: []byte("%PDF")})
		rr := testutil.DoRequest(s.router, s.asUser(req))

		s.Equal(http.StatusOK, rr.Code)
		body := testutil.UnmarshalResponse[verification.Result](s.T(), rr)
		s.False(body.Success)
		s.Equal(verification.FailureDocumentBlocked, body.Failure)
	})

	s.Run("missing front image", func() {
		req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/verification/documents", map[string]string{"documentType": "LICENSE"})
		rr := testutil.DoRequest(s.router, s.asUser(req))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("unknown document type", func() {
		req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/verification/documents",
			map[string]string{"documentType": "PASSPORT"},
			testutil.MultipartFile{Field: "front", Filename: "f.jpg", Content: []byte("x")})
		rr := testutil.DoRequest(s.router, s.asUser(req))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("unauthenticated", func() {
		req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/verification/documents", nil,
			testutil.MultipartFile{Field: "front", Filename: "f.jpg", Content: []byte("x")})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})
}

func (s *VerificationHandlerSuite) TestUploadTooLarge() {
	h := New(s.service, nil, nil, 64)
	r := chi.NewRouter()
	h.RegisterUser(r)

	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/verification/documents", nil,
		testutil.MultipartFile{Field: "front", Filename: "f.jpg", Content: make([]byte, 4096)})
	rr := testutil.DoRequest(r, s.asUser(req))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusRequestEntityTooLarge, "payload_too_large")
}

func (s *VerificationHandlerSuite) TestProfile() {
	s.Run("invalid OIB is reported as unprocessable", func() {
		s.service.EXPECT().EvaluateProfile(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req verification.ProfileRequest) verification.Result {
				s.Equal("12345678901", req.TaxID)
				return verification.Result{Failure: verification.FailureInvalidRequest}
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/profile",
			map[string]any{"taxId": " 12345678901 "})
		rr := testutil.DoRequest(s.router, s.asUser(req))
		s.Equal(http.StatusUnprocessableEntity, rr.Code)
	})

	s.Run("unknown fields are rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/profile", map[string]any{"oib": "1"})
		rr := testutil.DoRequest(s.router, s.asUser(req))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("users cannot confirm their own email or phone", func() {
		for _, field := range []string{"emailVerified", "phoneVerified"} {
			req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/profile",
				map[string]any{"taxId": "69435151530", field: true})
			rr := testutil.DoRequest(s.router, s.asUser(req))
			testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
		}
	})
}

func (s *VerificationHandlerSuite) TestStatus() {
	rec := trust.NewRecord(s.userID, testTime)
	rec.PhoneVerified = true
	rec.TrustScore = 20
	s.service.EXPECT().Status(gomock.Any(), s.userID).Return(rec, nil)

	rr := testutil.DoRequest(s.router, s.asUser(testutil.NewJSONRequest(s.T(), http.MethodGet, "/verification/status", nil)))

	s.Equal(http.StatusOK, rr.Code)
	body := testutil.UnmarshalResponse[StatusResponse](s.T(), rr)
	s.Equal(s.userID.String(), body.UserID)
	s.True(body.PhoneVerified)
	s.Equal(20, body.TrustScore)
	s.Len(body.Channels, len(trust.Channels))
}

func (s *VerificationHandlerSuite) TestStatusStoreFailure() {
	s.service.EXPECT().Status(gomock.Any(), s.userID).Return(nil, sentinel.ErrUnavailable)
	rr := testutil.DoRequest(s.router, s.asUser(testutil.NewJSONRequest(s.T(), http.MethodGet, "/verification/status", nil)))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusServiceUnavailable, "service_unavailable")
}

func (s *VerificationHandlerSuite) TestManual() {
	target := id.UserID(uuid.New())
	path := "/admin/verification/" + target.String()

	s.Run("builds the update from present fields only", func() {
		s.service.EXPECT().ApplyManual(gomock.Any(), target, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ id.UserID, u *trust.ManualUpdate) verification.Result {
				s.Equal("admin-7", u.Actor)
				s.Contains(u.Summary(), "phone=false")
				s.Contains(u.Summary(), "score=55")
				s.NotContains(u.Summary(), "email")
				return verification.Result{Success: true, TrustScore: 55}
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, path,
			map[string]any{"phoneVerified": false, "trustScore": 55, "note": "called the user"})
		rr := testutil.DoRequest(s.router, testutil.WithAdmin(req, "admin-7"))
		s.Equal(http.StatusOK, rr.Code)
	})

	s.Run("invalid state name", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, path,
			map[string]any{"states": map[string]string{"company": "APPROVED"}})
		rr := testutil.DoRequest(s.router, testutil.WithAdmin(req, "admin-7"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("audit failure maps to unavailable", func() {
		s.service.EXPECT().ApplyManual(gomock.Any(), target, gomock.Any()).
			Return(verification.Result{Failure: verification.FailureAudit})
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]any{"companyVerified": true})
		rr := testutil.DoRequest(s.router, testutil.WithAdmin(req, "admin-7"))
		s.Equal(http.StatusServiceUnavailable, rr.Code)
	})

	s.Run("bad user id", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/verification/not-a-uuid", map[string]any{"phoneVerified": true})
		rr := testutil.DoRequest(s.router, testutil.WithAdmin(req, "admin-7"))
		s.Equal(http.StatusBadRequest, rr.Code)
	})
}

func (s *VerificationHandlerSuite) TestBatch() {
	s.Run("default limit", func() {
		s.service.EXPECT().BatchAutoVerify(gomock.Any(), verification.MaxBatchSize).
			Return(verification.BatchReport{Requested: 100, Processed: 3, Verified: 1})
		rr := testutil.DoRequest(s.router, testutil.WithAdmin(
			testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/verification/batch", nil), "admin-7"))

		s.Equal(http.StatusOK, rr.Code)
		body := testutil.UnmarshalResponse[verification.BatchReport](s.T(), rr)
		s.Equal(3, body.Processed)
	})

	s.Run("limit above the cap", func() {
		rr := testutil.DoRequest(s.router, testutil.WithAdmin(
			testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/verification/batch?limit=101", nil), "admin-7"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})
}

func (s *VerificationHandlerSuite) TestConfirmChannel() {
	target := id.UserID(uuid.New())
	s.service.EXPECT().ConfirmChannel(gomock.Any(), target, trust.ChannelEmail).
		Return(verification.Result{Success: true, TrustScore: 20})

	rr := testutil.DoRequest(s.router, testutil.WithAdmin(testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/admin/verification/"+target.String()+"/channels/email", nil), "admin-7"))
	s.Equal(http.StatusOK, rr.Code)

	rr = testutil.DoRequest(s.router, testutil.WithAdmin(testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/admin/verification/"+target.String()+"/channels/company", nil), "admin-7"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
}

func (s *VerificationHandlerSuite) TestAuditTrail() {
	target := id.UserID(uuid.New())
	s.service.EXPECT().AuditTrail(gomock.Any(), target, 10).Return([]audit.Event{
		{ID: uuid.New(), Category: audit.CategoryCompliance, ActorID: "admin-7", Action: "manual_update", SubjectHash: "abc"},
	}, nil)

	rr := testutil.DoRequest(s.router, testutil.WithAdmin(testutil.NewJSONRequest(s.T(), http.MethodGet,
		"/admin/verification/"+target.String()+"/audit?limit=10", nil), "admin-7"))

	require.Equal(s.T(), http.StatusOK, rr.Code)
	body := testutil.UnmarshalResponse[AuditTrailResponse](s.T(), rr)
	require.Len(s.T(), body.Events, 1)
	assert.Equal(s.T(), "admin-7", body.Events[0].ActorID)
	assert.NotContains(s.T(), rr.Body.String(), "abc")
}

func (s *VerificationHandlerSuite) TestRateLimitedRoutes() {
	var classes []ratelimit.Class
	h := New(s.service, nil, nil, 0).WithRateLimit(func(c ratelimit.Class) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				classes = append(classes, c)
				if c == ratelimit.ClassDocument {
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				next.ServeHTTP(w, r)
			})
		}
	})
	r := chi.NewRouter()
	h.RegisterUser(r)
	h.RegisterAdmin(r)

	req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/verification/documents", nil,
		testutil.MultipartFile{Field: "front", Filename: "f.jpg", Content: []byte("x")})
	rr := testutil.DoRequest(r, s.asUser(req))
	s.Equal(http.StatusTooManyRequests, rr.Code)

	s.service.EXPECT().BatchAutoVerify(gomock.Any(), 5).Return(verification.BatchReport{Requested: 5})
	rr = testutil.DoRequest(r, testutil.WithAdmin(
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/verification/batch?limit=5", nil), "admin-7"))
	s.Equal(http.StatusOK, rr.Code)
	s.Equal([]ratelimit.Class{ratelimit.ClassDocument, ratelimit.ClassAdmin}, classes)
}
