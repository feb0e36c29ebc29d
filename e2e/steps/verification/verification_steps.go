// Package verification holds the step definitions for the verification API.
package verification

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the shared e2e context these steps need.
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	AdminPOST(path string, body any) error
	AdminGET(path string) error
	Unauthenticated(method, path string) error
	Upload(fields map[string]string, front []byte) error
	GetUserID() string
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers the verification step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &steps{tc: tc}

	ctx.Step(`^I submit a profile with OIB "([^"]*)"$`, s.submitProfile)
	ctx.Step(`^I submit a profile with OIB "([^"]*)" claiming a verified email$`, s.submitProfileWithEmail)
	ctx.Step(`^I request my verification status$`, s.requestStatus)
	ctx.Step(`^I request my verification status without a token$`, s.requestStatusUnauthenticated)
	ctx.Step(`^I upload a "([^"]*)" document with content "([^"]*)"$`, s.upload)
	ctx.Step(`^an admin marks my phone as verified$`, s.adminVerifyPhone)
	ctx.Step(`^an admin confirms my "([^"]*)" channel$`, s.adminConfirmChannel)
	ctx.Step(`^an admin requests my audit trail$`, s.adminAuditTrail)
	ctx.Step(`^the channel "([^"]*)" should be "([^"]*)"$`, s.channelShouldBe)
	ctx.Step(`^"([^"]*)" should be listed as verified$`, s.listedAsVerified)
	ctx.Step(`^the trust score should be at least (\d+)$`, s.scoreAtLeast)
	ctx.Step(`^the audit trail should contain an event with action "([^"]*)"$`, s.auditContains)
}

type steps struct {
	tc TestContext
}

func (s *steps) submitProfile(oib string) error {
	return s.tc.POST("/verification/profile", map[string]any{"taxId": oib})
}

func (s *steps) submitProfileWithEmail(oib string) error {
	return s.tc.POST("/verification/profile", map[string]any{"taxId": oib, "emailVerified": true})
}

func (s *steps) requestStatus() error {
	return s.tc.GET("/verification/status")
}

func (s *steps) requestStatusUnauthenticated() error {
	return s.tc.Unauthenticated("GET", "/verification/status")
}

func (s *steps) upload(docType, content string) error {
	return s.tc.Upload(map[string]string{"documentType": docType}, []byte(content))
}

func (s *steps) adminVerifyPhone() error {
	return s.tc.AdminPOST("/admin/verification/"+s.tc.GetUserID(), map[string]any{
		"phoneVerified": true,
		"note":          "confirmed by e2e",
	})
}

func (s *steps) adminConfirmChannel(channel string) error {
	return s.tc.AdminPOST(fmt.Sprintf("/admin/verification/%s/channels/%s", s.tc.GetUserID(), channel), nil)
}

func (s *steps) adminAuditTrail() error {
	return s.tc.AdminGET(fmt.Sprintf("/admin/verification/%s/audit", s.tc.GetUserID()))
}

func (s *steps) channelShouldBe(channel, state string) error {
	v, err := s.tc.GetResponseField("channels")
	if err != nil {
		return err
	}
	channels, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("channels is not an object: %v", v)
	}
	if got := channels[channel]; got != state {
		return fmt.Errorf("channel %s: expected %s, got %v", channel, state, got)
	}
	return nil
}

func (s *steps) listedAsVerified(channel string) error {
	v, err := s.tc.GetResponseField("verified")
	if err != nil {
		return err
	}
	list, ok := v.([]any)
	if !ok {
		return fmt.Errorf("verified is not a list: %v", v)
	}
	if !slices.Contains(list, any(channel)) {
		return fmt.Errorf("%s not in verified channels %v", channel, list)
	}
	return nil
}

func (s *steps) scoreAtLeast(min int) error {
	v, err := s.tc.GetResponseField("trustScore")
	if err != nil {
		return err
	}
	score, ok := v.(float64)
	if !ok {
		return fmt.Errorf("trustScore is not a number: %v", v)
	}
	if int(score) < min {
		return fmt.Errorf("expected trust score >= %d, got %d", min, int(score))
	}
	return nil
}

func (s *steps) auditContains(action string) error {
	var trail struct {
		Events []struct {
			Action string `json:"action"`
		} `json:"events"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &trail); err != nil {
		return fmt.Errorf("decode audit trail: %w", err)
	}
	for _, e := range trail.Events {
		if e.Action == action {
			return nil
		}
	}
	return fmt.Errorf("no %q event in %d audit events", action, len(trail.Events))
}
