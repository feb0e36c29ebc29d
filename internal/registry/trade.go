package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Body markers of the portal's web application firewall challenge pages.
var challengeMarkers = []string{
	`window["bobcmn"]`,
	`window["failureconfig"]`,
	"tspd_101",
	"something went wrong",
	"support id",
	"url was rejected",
}

var noResults = regexp.MustCompile(`(?i)nema rezultata|nema podataka|pretraga nije dala rezultata|nijedan obrt|(?:^|[^0-9])0 rezultata`)

const (
	resultsSelector = "table.results, table.pretraga, #rezultati, .rezultati-pretrage"
	nameSelector    = "td, .result-name, .company-name"
	// minCleanText is how much text must remain once the form is stripped
	// before the page body is treated as a results listing.
	minCleanText = 200
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36"
)

// KnownVerifier reports tax IDs already confirmed by an earlier verification.
type KnownVerifier interface {
	IsCompanyVerified(ctx context.Context, taxID string) (bool, error)
}

// TradeChecker confirms sole traders through the public trade registry
// search portal, which has no API.
type TradeChecker struct {
	portalURL string
	known     KnownVerifier
	client
}

// NewTradeChecker builds a trade registry checker. An empty portal URL
// disables scraping; known may be nil.
func NewTradeChecker(portalURL string, known KnownVerifier, opts ...Option) *TradeChecker {
	return &TradeChecker{portalURL: portalURL, known: known, client: newClient(opts)}
}

func (t *TradeChecker) Source() Source { return SourceTrade }

// Check submits the portal's search form for the owner's tax ID. A
// challenge page is reported as blocked, never as a negative.
func (t *TradeChecker) Check(ctx context.Context, taxID, declaredName string) CheckResult {
	if t.known != nil {
		ok, err := t.known.IsCompanyVerified(ctx, taxID)
		if err != nil {
			t.logger.WarnContext(ctx, "known verification lookup failed", "error", err)
		}
		if ok {
			res := verified(SourceTrade, true, &Data{TaxID: taxID, Name: declaredName, Origin: "existing_verification"}, t.now())
			res.Note = NoteKnownVerified
			return res
		}
	}
	if t.portalURL == "" {
		return notVerified(SourceTrade, NoteNotConfigured, t.now())
	}

	cookies, res, done := t.openForm(ctx)
	if done {
		return res
	}

	page, rerr := t.search(ctx, taxID, cookies)
	if rerr != nil {
		return failed(SourceTrade, rerr, t.now())
	}
	return t.interpret(page, taxID, declaredName)
}

// openForm loads the search page to obtain session cookies.
func (t *TradeChecker) openForm(ctx context.Context) ([]*http.Cookie, CheckResult, bool) {
	req, err := http.NewRequest(http.MethodGet, t.portalURL, nil)
	if err != nil {
		return nil, failed(SourceTrade, NewError(ErrorInternal, SourceTrade, "build form request", err), t.now()), true
	}
	setBrowserHeaders(req)

	resp, body, err := t.do(ctx, req)
	if err != nil {
		return nil, failed(SourceTrade, transportError(SourceTrade, err), t.now()), true
	}
	if isChallenge(string(body)) {
		t.logger.InfoContext(ctx, "trade registry challenge page on form load", "status", resp.StatusCode)
		return nil, blocked(t.now()), true
	}
	if resp.StatusCode >= 400 {
		return nil, failed(SourceTrade, tradeStatusError(resp.StatusCode), t.now()), true
	}
	return resp.Cookies(), CheckResult{}, false
}

func (t *TradeChecker) search(ctx context.Context, taxID string, cookies []*http.Cookie) (string, *Error) {
	req, err := http.NewRequest(http.MethodPost, t.portalURL, strings.NewReader(searchForm(taxID).Encode()))
	if err != nil {
		return "", NewError(ErrorInternal, SourceTrade, "build search request", err)
	}
	setBrowserHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", t.portalURL)
	if u, err := url.Parse(t.portalURL); err == nil {
		req.Header.Set("Origin", u.Scheme+"://"+u.Host)
	}
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	resp, body, err := t.do(ctx, req)
	if err != nil {
		return "", transportError(SourceTrade, err)
	}
	page := string(body)
	if resp.StatusCode >= 400 && !isChallenge(page) {
		return "", tradeStatusError(resp.StatusCode)
	}
	return page, nil
}

func (t *TradeChecker) interpret(page, taxID, declaredName string) CheckResult {
	if isChallenge(page) {
		return blocked(t.now())
	}
	if noResults.MatchString(page) {
		return notVerified(SourceTrade, NoteNotFound, t.now())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return failed(SourceTrade, NewError(ErrorBadData, SourceTrade, "parse results page", err), t.now())
	}

	region := doc.Find(resultsSelector).First()
	found := region.Length() > 0 && strings.Contains(region.Text(), taxID)
	if !found {
		found = taxIDInCleanText(page, taxID)
		region = doc.Selection
	}
	if !found {
		return notVerified(SourceTrade, NoteNotFound, t.now())
	}

	name := declaredName
	region.Find(nameSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if len(text) > 5 && len(text) < 200 && !strings.Contains(text, taxID) {
			name = text
			return false
		}
		return true
	})
	return verified(SourceTrade, true, &Data{TaxID: taxID, Name: name, Status: "U RADU"}, t.now())
}

// taxIDInCleanText looks for the tax ID in the page with the echoed search
// form removed.
func taxIDInCleanText(page, taxID string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return false
	}
	doc.Find("form, input, select, button, script, style").Remove()
	text := strings.TrimSpace(doc.Find("body").Text())
	return len(text) > minCleanText && strings.Contains(text, taxID)
}

func isChallenge(body string) bool {
	lower := strings.ToLower(body)
	for _, m := range challengeMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func blocked(now time.Time) CheckResult {
	res := notVerified(SourceTrade, NoteManualUpload, now)
	res.Blocked = true
	return res
}

func tradeStatusError(status int) *Error {
	msg := fmt.Sprintf("portal returned HTTP %d", status)
	switch {
	case status == http.StatusTooManyRequests:
		return NewError(ErrorRateLimited, SourceTrade, msg, nil)
	case status >= 500:
		return NewError(ErrorProviderOutage, SourceTrade, msg, nil)
	default:
		return NewError(ErrorBadData, SourceTrade, msg, nil)
	}
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "hr,en;q=0.9")
}

// searchForm reproduces the portal's search form with every trade state
// selected so closed and paused trades are found too.
func searchForm(taxID string) url.Values {
	form := url.Values{}
	form.Set("vlasnikOib", taxID)
	form.Set("_pretraziVlasnikaUPasivi", "on")
	for _, state := range []string{"URadu", "PrivObust", "Mirovanje", "BezPocetka", "Odjava", "Preseljen"} {
		form.Set("obrtStanje"+state, "true")
		form.Set("_obrtStanje"+state, "on")
	}
	for _, empty := range []string{"obrtNaziv", "obrtMbo", "obrtTduId", "vlasnikImePrezime", "djelatnost2025Id", "djelatnostId", "recaptchaToken"} {
		form.Set(empty, "")
	}
	form.Set("_pretezitaDjelatnost2025", "on")
	form.Set("_pretezitaDjelatnost", "on")
	form.Set("action", "validate_captcha")
	form.Set("trazi", "Traži")
	return form
}
