package e2e

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"

	"verity/e2e/steps/ratelimit"
	"verity/e2e/steps/verification"
)

// RegisterSteps registers all step definitions from modular packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Before(func(c context.Context, _ *godog.Scenario) (context.Context, error) {
		return c, tc.Reset()
	})

	ctx.Step(`^the response status should be (\d+)$`, func(status int) error {
		if got := tc.GetLastResponseStatus(); got != status {
			return fmt.Errorf("expected status %d, got %d: %s", status, got, tc.GetLastResponseBody())
		}
		return nil
	})
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, func(field, want string) error {
		v, err := tc.GetResponseField(field)
		if err != nil {
			return err
		}
		if got := stringify(v); got != want {
			return fmt.Errorf("field %q: expected %q, got %q", field, want, got)
		}
		return nil
	})

	verification.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
