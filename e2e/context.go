// Package e2e drives a running verity server through its HTTP API.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TestContext holds per-scenario state: the caller identity and the last
// response.
type TestContext struct {
	BaseURL    string
	SigningKey string
	Issuer     string

	client     *http.Client
	userID     string
	token      string
	adminToken string

	lastStatus int
	lastBody   []byte
	lastHeader http.Header
}

// NewTestContext returns a context talking to baseURL.
func NewTestContext(baseURL, signingKey, issuer string) *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		SigningKey: signingKey,
		Issuer:     issuer,
		client:     &http.Client{Timeout: 90 * time.Second},
	}
}

// Reset starts a scenario as a fresh user.
func (tc *TestContext) Reset() error {
	tc.userID = uuid.NewString()
	tc.lastStatus, tc.lastBody, tc.lastHeader = 0, nil, nil

	var err error
	if tc.token, err = tc.sign(tc.userID, "user"); err != nil {
		return err
	}
	tc.adminToken, err = tc.sign("e2e-admin", "admin")
	return err
}

func (tc *TestContext) sign(subject, role string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iss":  tc.Issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
		"jti":  uuid.NewString(),
	})
	return token.SignedString([]byte(tc.SigningKey))
}

// GetUserID returns the current scenario user.
func (tc *TestContext) GetUserID() string { return tc.userID }

// POST sends body as JSON with the user token.
func (tc *TestContext) POST(path string, body any) error {
	return tc.doJSON(http.MethodPost, path, body, tc.token)
}

// GET sends a request with the user token.
func (tc *TestContext) GET(path string) error {
	return tc.doJSON(http.MethodGet, path, nil, tc.token)
}

// AdminPOST sends body as JSON with the admin token.
func (tc *TestContext) AdminPOST(path string, body any) error {
	return tc.doJSON(http.MethodPost, path, body, tc.adminToken)
}

// AdminGET sends a request with the admin token.
func (tc *TestContext) AdminGET(path string) error {
	return tc.doJSON(http.MethodGet, path, nil, tc.adminToken)
}

// Unauthenticated sends a request without any token.
func (tc *TestContext) Unauthenticated(method, path string) error {
	return tc.doJSON(method, path, nil, "")
}

// Upload posts a document as the scenario user.
func (tc *TestContext) Upload(fields map[string]string, front []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("front", "front.pdf")
	if err != nil {
		return err
	}
	if _, err := part.Write(front); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, tc.BaseURL+"/verification/documents", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tc.token)
	return tc.do(req)
}

func (tc *TestContext) doJSON(method, path string, body any, token string) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, tc.BaseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	tc.lastStatus = resp.StatusCode
	tc.lastHeader = resp.Header
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

// GetLastResponseStatus returns the status of the last response.
func (tc *TestContext) GetLastResponseStatus() int { return tc.lastStatus }

// GetLastResponseBody returns the body of the last response.
func (tc *TestContext) GetLastResponseBody() []byte { return tc.lastBody }

// GetLastResponseHeader returns a header of the last response.
func (tc *TestContext) GetLastResponseHeader(name string) string { return tc.lastHeader.Get(name) }

// GetResponseField reads a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var m map[string]any
	if err := json.Unmarshal(tc.lastBody, &m); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	v, ok := m[field]
	if !ok {
		return nil, fmt.Errorf("response has no field %q: %s", field, tc.lastBody)
	}
	return v, nil
}
