package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const companyAttempts = 3

// CompanyConfig holds court registry (sudreg) credentials.
type CompanyConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
}

// CompanyChecker confirms incorporated entities in the court registry.
type CompanyChecker struct {
	cfg    CompanyConfig
	tokens oauth2.TokenSource
	client
}

// NewCompanyChecker builds a court registry checker. Access tokens are
// obtained with the client credentials grant and reused until they expire.
func NewCompanyChecker(cfg CompanyConfig, opts ...Option) *CompanyChecker {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	c := &CompanyChecker{cfg: cfg, client: newClient(opts)}

	oc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.BaseURL + "/api/oauth/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	// Token requests do not see the caller's context, so they get their own timeout.
	tokenHTTP := &http.Client{Transport: c.http.Transport, Timeout: c.timeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, tokenHTTP)
	c.tokens = oc.TokenSource(ctx)
	c.http = oauth2.NewClient(ctx, c.tokens)
	return c
}

func (c *CompanyChecker) Source() Source { return SourceCompany }

// Check makes sure a token is at hand and looks the tax ID up. Only
// "service unavailable" responses are retried.
func (c *CompanyChecker) Check(ctx context.Context, taxID, declaredName string) CheckResult {
	if c.cfg.ClientID == "" || c.cfg.ClientSecret == "" {
		return notVerified(SourceCompany, NoteNotConfigured, c.now())
	}

	if _, err := c.tokens.Token(); err != nil {
		return failed(SourceCompany, tokenError(err), c.now())
	}

	subject, rerr := c.lookup(ctx, taxID)
	if rerr != nil {
		if rerr.Category == ErrorNotFound {
			return notVerified(SourceCompany, NoteNotFound, c.now())
		}
		return failed(SourceCompany, rerr, c.now())
	}
	if subject == nil {
		return notVerified(SourceCompany, NoteNotFound, c.now())
	}

	active := subject.Status.String() == "1"
	data := &Data{
		TaxID:              firstNonEmpty(subject.OIB.String(), taxID),
		Name:               firstNonEmpty(subject.ShortName.Name, subject.Name.Name, declaredName),
		Address:            subject.Seat.address(),
		RegistrationNumber: subject.MBS.String(),
		TaxNumber:          subject.TaxNumber.String(),
		Status:             "NEAKTIVAN",
	}
	if active {
		data.Status = "AKTIVAN"
	}
	return verified(SourceCompany, active, data, c.now())
}

func tokenError(err error) *Error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr.Response != nil {
		return statusError(rerr.Response.StatusCode, "token exchange")
	}
	var uerr *url.Error
	var nerr net.Error
	if errors.As(err, &uerr) || errors.As(err, &nerr) {
		return transportError(SourceCompany, err)
	}
	return NewError(ErrorAuthentication, SourceCompany, "token response carried no access token", err)
}

type sudregName struct {
	Name string `json:"ime"`
}

type sudregSeat struct {
	Address     string `json:"adresa"`
	Street      string `json:"ulica"`
	HouseNumber string `json:"kucni_broj"`
	Settlement  string `json:"naziv_naselja"`
}

func (s sudregSeat) address() string {
	if s.Address != "" {
		return s.Address
	}
	street := strings.TrimSpace(s.Street + " " + s.HouseNumber)
	switch {
	case street != "" && s.Settlement != "":
		return street + ", " + s.Settlement
	default:
		return firstNonEmpty(street, s.Settlement)
	}
}

type sudregSubject struct {
	Status    flexString `json:"status"`
	OIB       flexString `json:"oib"`
	MBS       flexString `json:"maticni_broj"`
	TaxNumber flexString `json:"porezni_broj"`
	ShortName sudregName `json:"skracena_tvrtka"`
	Name      sudregName `json:"tvrtka"`
	Seat      sudregSeat `json:"sjediste"`
}

func (c *CompanyChecker) lookup(ctx context.Context, taxID string) (*sudregSubject, *Error) {
	q := url.Values{"tip_identifikatora": {"oib"}, "identifikator": {taxID}}
	endpoint := c.cfg.BaseURL + "/api/javni/detalji_subjekta?" + q.Encode()

	var lastErr *Error
	for attempt := 1; attempt <= companyAttempts; attempt++ {
		req, err := http.NewRequest(http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, NewError(ErrorInternal, SourceCompany, "build lookup request", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, body, err := c.do(ctx, req)
		if err != nil {
			return nil, tokenError(err)
		}
		switch {
		case resp.StatusCode == http.StatusOK:
			return decodeSubject(body)
		case resp.StatusCode == http.StatusServiceUnavailable:
			lastErr = NewError(ErrorProviderOutage, SourceCompany, "service temporarily unavailable", nil)
			if attempt < companyAttempts {
				c.logger.WarnContext(ctx, "court registry unavailable, retrying",
					"attempt", attempt,
					"max_attempts", companyAttempts,
				)
				if err := c.sleep(ctx, c.retryDelay); err != nil {
					return nil, NewError(ErrorTimeout, SourceCompany, "retry interrupted", err)
				}
			}
		default:
			return nil, statusError(resp.StatusCode, "lookup")
		}
	}
	return nil, lastErr
}

func decodeSubject(body []byte) (*sudregSubject, *Error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var s sudregSubject
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, NewError(ErrorBadData, SourceCompany, "decode subject", err)
	}
	return &s, nil
}

func statusError(status int, op string) *Error {
	msg := fmt.Sprintf("%s returned HTTP %d", op, status)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewError(ErrorAuthentication, SourceCompany, msg, nil)
	case status == http.StatusNotFound:
		return NewError(ErrorNotFound, SourceCompany, msg, nil)
	case status == http.StatusTooManyRequests:
		return NewError(ErrorRateLimited, SourceCompany, msg, nil)
	case status >= 500:
		return NewError(ErrorProviderOutage, SourceCompany, msg, nil)
	default:
		return NewError(ErrorBadData, SourceCompany, msg, nil)
	}
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string { return string(f) }

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
