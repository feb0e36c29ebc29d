package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// Profession selects the professional chamber to consult.
type Profession string

const (
	ProfessionLawyer    Profession = "lawyer"
	ProfessionDoctor    Profession = "doctor"
	ProfessionArchitect Profession = "architect"
)

// chambers maps professions to the chamber that keeps their directory.
var chambers = map[Profession]string{
	ProfessionLawyer:    "HOK",
	ProfessionDoctor:    "HLZ",
	ProfessionArchitect: "HKA",
}

var inactiveStatuses = []string{"inactive", "neaktiv", "brisan", "suspend", "istekl"}

// ChamberChecker looks a member up in a professional chamber directory.
// Any failure is treated as unknown, never as a denial.
type ChamberChecker struct {
	profession Profession
	endpoint   string
	client
}

// NewChamberChecker builds a checker for one profession's chamber.
func NewChamberChecker(profession Profession, endpoint string, opts ...Option) *ChamberChecker {
	return &ChamberChecker{profession: profession, endpoint: endpoint, client: newClient(opts)}
}

func (c *ChamberChecker) Source() Source { return SourceChamber }

// Profession returns the profession this checker serves.
func (c *ChamberChecker) Profession() Profession { return c.profession }

type chamberMember struct {
	OIB           flexString `json:"oib"`
	Name          string     `json:"name"`
	LicenseNumber flexString `json:"licenseNumber"`
	Chamber       string     `json:"chamber"`
	Status        string     `json:"status"`
}

func (c *ChamberChecker) Check(ctx context.Context, taxID, declaredName string) CheckResult {
	if c.endpoint == "" {
		return notVerified(SourceChamber, NoteNotConfigured, c.now())
	}
	if _, ok := chambers[c.profession]; !ok {
		return notVerified(SourceChamber, NoteNotApplicable, c.now())
	}

	req, err := http.NewRequest(http.MethodGet, c.endpoint+"?"+url.Values{"oib": {taxID}}.Encode(), nil)
	if err != nil {
		return notVerified(SourceChamber, NoteUnavailable, c.now())
	}
	req.Header.Set("Accept", "application/json")

	resp, body, err := c.do(ctx, req)
	if err != nil {
		c.logger.InfoContext(ctx, "chamber directory unreachable",
			"profession", string(c.profession),
			"error", err,
		)
		return notVerified(SourceChamber, NoteUnavailable, c.now())
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		c.logger.InfoContext(ctx, "chamber directory unavailable",
			"profession", string(c.profession),
			"status", resp.StatusCode,
		)
		return notVerified(SourceChamber, NoteUnavailable, c.now())
	case resp.StatusCode != http.StatusOK:
		return notVerified(SourceChamber, NoteNotFound, c.now())
	}

	var m chamberMember
	if err := json.Unmarshal(body, &m); err != nil {
		return notVerified(SourceChamber, NoteUnavailable, c.now())
	}
	data := &Data{
		TaxID:         firstNonEmpty(m.OIB.String(), taxID),
		Name:          firstNonEmpty(m.Name, declaredName),
		LicenseNumber: m.LicenseNumber.String(),
		Chamber:       firstNonEmpty(m.Chamber, chambers[c.profession]),
		Status:        m.Status,
	}
	return verified(SourceChamber, memberActive(m.Status), data, c.now())
}

func memberActive(status string) bool {
	s := strings.ToLower(status)
	for _, inactive := range inactiveStatuses {
		if strings.Contains(s, inactive) {
			return false
		}
	}
	return true
}
