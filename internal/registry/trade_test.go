package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const searchPage = `<html><body><form method="post"><input name="vlasnikOib"/></form></body></html>`

func portal(t *testing.T, formPage, resultPage string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "abc"})
			_, _ = w.Write([]byte(formPage))
		case http.MethodPost:
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, testTaxID, r.PostForm.Get("vlasnikOib"))
			c, err := r.Cookie("JSESSIONID")
			if assert.NoError(t, err) {
				assert.Equal(t, "abc", c.Value)
			}
			_, _ = w.Write([]byte(resultPage))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type knownStub struct {
	ok  bool
	err error
}

func (k knownStub) IsCompanyVerified(context.Context, string) (bool, error) { return k.ok, k.err }

func TestTradeChecker(t *testing.T) {
	ctx := context.Background()

	t.Run("results table containing the tax ID is verified", func(t *testing.T) {
		page := `<html><body><table class="results"><tr><td>OBRT ZA USLUGE PRIMJER</td><td>` + testTaxID + `</td></tr></table></body></html>`
		srv := portal(t, searchPage, page)
		res := NewTradeChecker(srv.URL, nil).Check(ctx, testTaxID, "Ivan Horvat")

		assert.True(t, res.Confirmed())
		assert.Equal(t, "OBRT ZA USLUGE PRIMJER", res.Data.Name)
		assert.Equal(t, "U RADU", res.Data.Status)
	})

	t.Run("firewall challenge is blocked, not a negative", func(t *testing.T) {
		challenge := `<html><script>window["bobcmn"] = "x";</script><p>Support ID: 123</p></html>`
		srv := portal(t, searchPage, challenge)
		res := NewTradeChecker(srv.URL, nil).Check(ctx, testTaxID, "")

		assert.Equal(t, OutcomeNotVerified, res.Outcome)
		assert.True(t, res.Blocked)
		assert.Equal(t, NoteManualUpload, res.Note)
		assert.False(t, res.Cacheable())
	})

	t.Run("challenge on form load is blocked", func(t *testing.T) {
		srv := portal(t, `<html>The requested URL was rejected.</html>`, "")
		res := NewTradeChecker(srv.URL, nil).Check(ctx, testTaxID, "")

		assert.True(t, res.Blocked)
	})

	t.Run("explicit no results marker is not found", func(t *testing.T) {
		srv := portal(t, searchPage, `<html><body>Pretraga nije dala rezultata.</body></html>`)
		res := NewTradeChecker(srv.URL, nil).Check(ctx, testTaxID, "")

		assert.Equal(t, OutcomeNotVerified, res.Outcome)
		assert.False(t, res.Blocked)
		assert.Equal(t, NoteNotFound, res.Note)
	})

	t.Run("ten results is not the zero results marker", func(t *testing.T) {
		assert.False(t, noResults.MatchString("Pronađeno 10 rezultata"))
		assert.True(t, noResults.MatchString("Pronađeno: 0 rezultata"))
	})

	t.Run("tax ID echoed only in the form is not a match", func(t *testing.T) {
		page := `<html><body><form><input name="vlasnikOib" value="` + testTaxID + `"/></form>` +
			strings.Repeat("<p>Upute za pretragu obrtnog registra.</p>", 20) + `</body></html>`
		srv := portal(t, searchPage, page)
		res := NewTradeChecker(srv.URL, nil).Check(ctx, testTaxID, "")

		assert.Equal(t, OutcomeNotVerified, res.Outcome)
		assert.Equal(t, NoteNotFound, res.Note)
	})

	t.Run("tax ID in a long page body outside the form is a match", func(t *testing.T) {
		page := `<html><body><form><input value="` + testTaxID + `"/></form><div><h3>Obrt Horvat</h3><p>OIB vlasnika: ` +
			testTaxID + `</p>` + strings.Repeat("<p>Djelatnost: usluge.</p>", 15) + `</div></body></html>`
		srv := portal(t, searchPage, page)
		res := NewTradeChecker(srv.URL, nil).Check(ctx, testTaxID, "Ivan Horvat")

		assert.True(t, res.Confirmed())
	})

	t.Run("server error is an error result", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()
		res := NewTradeChecker(srv.URL, nil).Check(ctx, testTaxID, "")

		assert.Equal(t, OutcomeError, res.Outcome)
		assert.Equal(t, ErrorProviderOutage, res.Err.Category)
	})

	t.Run("existing verification short-circuits scraping", func(t *testing.T) {
		res := NewTradeChecker("", knownStub{ok: true}).Check(ctx, testTaxID, "Ivan Horvat")

		assert.True(t, res.Confirmed())
		assert.Equal(t, "existing_verification", res.Data.Origin)
		assert.Equal(t, NoteKnownVerified, res.Note)
	})

	t.Run("known lookup failure falls through", func(t *testing.T) {
		res := NewTradeChecker("", knownStub{err: errors.New("db down")}).Check(ctx, testTaxID, "")

		assert.Equal(t, NoteNotConfigured, res.Note)
	})
}
