package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
)

var croatianVATID = regexp.MustCompile(`^HR\d{11}$`)

// VATChecker is the last-resort cross-check against the EU VAT
// information exchange system.
type VATChecker struct {
	endpoint string
	client
}

// NewVATChecker builds a VIES checker.
func NewVATChecker(endpoint string, opts ...Option) *VATChecker {
	return &VATChecker{endpoint: endpoint, client: newClient(opts)}
}

func (v *VATChecker) Source() Source { return SourceVAT }

type viesResponse struct {
	Valid   bool   `json:"valid"`
	VAT     string `json:"vat"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// VATID returns the VIES identifier for a Croatian tax ID.
func VATID(taxID string) string { return "HR" + taxID }

func (v *VATChecker) Check(ctx context.Context, taxID, declaredName string) CheckResult {
	vatID := VATID(taxID)
	if !croatianVATID.MatchString(vatID) {
		return notVerified(SourceVAT, NoteInvalidFormat, v.now())
	}
	if v.endpoint == "" {
		return notVerified(SourceVAT, NoteNotConfigured, v.now())
	}

	req, err := http.NewRequest(http.MethodGet, v.endpoint+"?"+url.Values{"vat": {vatID}}.Encode(), nil)
	if err != nil {
		return notVerified(SourceVAT, NoteUnavailable, v.now())
	}
	req.Header.Set("Accept", "application/json")

	resp, body, err := v.do(ctx, req)
	if err != nil {
		v.logger.InfoContext(ctx, "vies unreachable", "error", err)
		return notVerified(SourceVAT, NoteUnavailable, v.now())
	}
	if resp.StatusCode != http.StatusOK {
		return notVerified(SourceVAT, NoteUnavailable, v.now())
	}

	var r viesResponse
	if err := json.Unmarshal(body, &r); err != nil || !r.Valid {
		return notVerified(SourceVAT, NoteNotFound, v.now())
	}
	return verified(SourceVAT, true, &Data{
		TaxID:   taxID,
		VATID:   firstNonEmpty(r.VAT, vatID),
		Name:    firstNonEmpty(r.Name, declaredName),
		Address: r.Address,
	}, v.now())
}
