package testutil

import "testing"

// Given, When, and Then keep scenario tests readable without pulling in a
// BDD framework. Each step is a subtest so failures name the step.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}

func And(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("And "+desc, fn)
}

// Scenario groups Given/When/Then steps under a named parent test and stops at
// the first failed step, since later steps depend on earlier state.
func Scenario(t *testing.T, name string, steps ...func(t *testing.T)) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		for _, step := range steps {
			step(t)
			if t.Failed() {
				return
			}
		}
	})
}
