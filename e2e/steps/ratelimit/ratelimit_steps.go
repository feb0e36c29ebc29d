// Package ratelimit holds the step definitions for request quotas.
package ratelimit

import (
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the shared e2e context these steps need.
type TestContext interface {
	GET(path string) error
	POST(path string, body any) error
	GetLastResponseStatus() int
	GetLastResponseHeader(name string) string
}

// RegisterSteps registers the rate limit step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &steps{tc: tc}

	ctx.Step(`^I submit (\d+) profiles in a row$`, s.submitProfiles)
	ctx.Step(`^I request my verification status (\d+) times$`, s.requestStatus)
	ctx.Step(`^the last request should be rate limited$`, s.lastRateLimited)
	ctx.Step(`^the rate limit header "([^"]*)" should be present$`, s.headerPresent)
}

type steps struct {
	tc       TestContext
	statuses []int
}

func (s *steps) submitProfiles(n int) error {
	s.statuses = s.statuses[:0]
	for range n {
		if err := s.tc.POST("/verification/profile", map[string]any{"taxId": "69435151530"}); err != nil {
			return err
		}
		s.statuses = append(s.statuses, s.tc.GetLastResponseStatus())
	}
	return nil
}

func (s *steps) requestStatus(n int) error {
	s.statuses = s.statuses[:0]
	for range n {
		if err := s.tc.GET("/verification/status"); err != nil {
			return err
		}
		s.statuses = append(s.statuses, s.tc.GetLastResponseStatus())
	}
	return nil
}

func (s *steps) lastRateLimited() error {
	if got := s.tc.GetLastResponseStatus(); got != 429 {
		return fmt.Errorf("expected 429 after %d requests, got %d (statuses %v)", len(s.statuses), got, s.statuses)
	}
	retry, err := strconv.Atoi(s.tc.GetLastResponseHeader("Retry-After"))
	if err != nil || retry < 1 {
		return fmt.Errorf("Retry-After must be a positive number of seconds, got %q", s.tc.GetLastResponseHeader("Retry-After"))
	}
	return nil
}

func (s *steps) headerPresent(name string) error {
	if s.tc.GetLastResponseHeader(name) == "" {
		return fmt.Errorf("header %s missing", name)
	}
	return nil
}
