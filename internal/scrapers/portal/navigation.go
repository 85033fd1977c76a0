package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"medauth-backend/internal/components/chrono"
	"medauth-backend/internal/components/telemetry"
	"medauth-backend/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_navigation_init         = "navigation.init"
	report_navigation_user_type    = "navigation.select-user-type"
	report_navigation_login        = "navigation.login"
	report_navigation_open_search  = "navigation.open-search"
	report_navigation_document     = "navigation.set-document-type"
	report_navigation_search       = "navigation.search"
	report_navigation_view_state   = "navigation.view-state"
	report_navigation_error_banner = "navigation.error-banner"
)

type credentials struct {
	Username string
	Password string
}

// session is the state of one pass through the portal. It is never shared between
// lookups and is discarded when the pass ends.
type session struct {
	http      *transport
	loginUrl  string
	homeUrl   string
	loginPath string
	tel       telemetry.API
	clock     chrono.TimeAPI

	docType   DocumentType
	docCode   string
	docNumber string

	viewState string
	loggedIn  bool

	// loginFields is the login form as rendered on the first page load.
	loginFields map[string]string
	menuAnchor  string
	// searchFields is the search form as last rendered by the portal.
	searchFields map[string]string
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// notProcessed marks an inconsistency that is worth restarting the whole flow for.
func notProcessed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotProcessed, fmt.Sprintf(format, args...))
}

// absorb replaces the view state with the one carried by the response. Once logged in,
// a missing token is treated as a portal inconsistency instead of a fatal error.
func (s *session) absorb(body []byte) error {
	token, ok := extractViewState(body)
	if !ok {
		s.tel.ReportWarning(report_navigation_view_state, "missing view state", len(body))
		if s.loggedIn {
			return errors.Join(ErrNotProcessed, ErrViewStateMissing)
		}
		return ErrViewStateMissing
	}
	s.viewState = token
	return nil
}

// ajax posts a partial request for a navigation step. An <error> envelope means the
// step did not happen, which is restarted like any other missing marker.
func (s *session) ajax(ctx context.Context, endpoint string, payload url.Values) ([]byte, error) {
	body, failures, err := s.post(ctx, endpoint, payload)
	if err != nil {
		return nil, err
	}
	if len(failures) > 0 {
		return nil, notProcessed("%s answered with an error: %s", payload.Get(field_source), strings.Join(failures, "; "))
	}
	return body, nil
}

// post sends a partial request and hands back the messages of an <error> envelope
// separately so each step can decide what a failure means for it.
func (s *session) post(ctx context.Context, endpoint string, payload url.Values) ([]byte, []string, error) {
	if s.viewState == "" {
		return nil, nil, ErrViewStateMissing
	}
	res, err := s.http.Post(ctx, endpoint, payload, true)
	if err != nil {
		return nil, nil, err
	}
	body := res.Body()
	partial, ok := parsePartialResponse(body)
	if ok && len(partial.errors) > 0 {
		// the token may rotate even on a failed request
		token, found := extractViewState(body)
		if found {
			s.viewState = token
		}
		return body, partial.errors, nil
	}
	err = s.absorb(body)
	if err != nil {
		return nil, nil, err
	}
	return body, nil, nil
}

// navigate runs the portal from a fresh session up to the search results. When the
// search is conclusive by itself, the returned message is not MessageNone and the
// fragment is nil.
func (s *session) navigate(ctx context.Context, creds credentials) ([]byte, Message, error) {
	err := s.init(ctx)
	if err != nil {
		return nil, MessageNone, err
	}
	err = s.selectUserType(ctx)
	if err != nil {
		return nil, MessageNone, err
	}
	err = s.login(ctx, creds)
	if err != nil {
		return nil, MessageNone, err
	}
	err = s.openSearch(ctx)
	if err != nil {
		return nil, MessageNone, err
	}
	err = s.setDocumentType(ctx)
	if err != nil {
		return nil, MessageNone, err
	}
	return s.search(ctx)
}

func (s *session) init(ctx context.Context) (err error) {
	ctx, span := startSpan(ctx, "navigation:init")
	defer func() { endSpan(span, err) }()

	res, err := s.http.Get(ctx, s.loginUrl)
	if err != nil {
		s.tel.ReportBroken(report_navigation_init, err)
		return err
	}
	token, ok := extractViewState(res.Body())
	if !ok {
		err = fmt.Errorf("login page: %w", ErrViewStateMissing)
		s.tel.ReportBroken(report_navigation_init, err, s.loginUrl)
		return err
	}
	s.viewState = token
	s.loginFields = extractFormFields(res.Body(), form_login)
	return nil
}

func (s *session) selectUserType(ctx context.Context) (err error) {
	ctx, span := startSpan(ctx, "navigation:select-user-type")
	defer func() { endSpan(span, err) }()

	body, err := s.ajax(ctx, s.loginUrl, userTypePayload(s.viewState))
	if err != nil {
		s.tel.ReportBroken(report_navigation_user_type, err)
		return err
	}

	for name, value := range extractFormFields(body, form_login) {
		s.loginFields[name] = value
	}

	banner := errorBanner(body)
	if banner != "" {
		s.tel.ReportWarning(report_navigation_error_banner, banner)
	}
	return nil
}

func errorBanner(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(fragmentHTML(body)))
	if err != nil {
		return ""
	}
	return htmlutil.Text(doc.Find(selector_error_banner))
}

func (s *session) login(ctx context.Context, creds credentials) (err error) {
	ctx, span := startSpan(ctx, "navigation:login")
	defer func() { endSpan(span, err) }()

	loginError := func(err error) error {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	res, err := s.http.Post(ctx, s.loginUrl, loginPayload(s.loginFields, creds.Username, creds.Password, s.viewState), false)
	if err != nil {
		s.tel.ReportBroken(report_navigation_login, fmt.Errorf("post credentials: %w", err))
		return loginError(err)
	}

	body := res.Body()
	if !bytes.Contains(body, []byte(marker_login_success)) {
		body, err = s.verifyHome(ctx)
		if err != nil {
			s.tel.ReportBroken(report_navigation_login, err)
			return loginError(err)
		}
	}

	token, ok := extractViewState(body)
	if !ok {
		err = fmt.Errorf("home page: %w", ErrViewStateMissing)
		s.tel.ReportBroken(report_navigation_login, err)
		return loginError(err)
	}
	s.viewState = token
	s.loggedIn = true
	return nil
}

// verifyHome resolves an ambiguous login response by loading the home page, a session
// that is not logged in gets redirected back to the login page.
func (s *session) verifyHome(ctx context.Context) ([]byte, error) {
	res, err := s.http.Get(ctx, s.homeUrl)
	if err != nil {
		return nil, fmt.Errorf("verify home: %w", err)
	}
	if redirectedToLogin(res, s.loginPath) {
		return nil, fmt.Errorf("home page redirected back to login")
	}
	return res.Body(), nil
}

func redirectedToLogin(res *resty.Response, loginPath string) bool {
	if res.RawResponse == nil || res.RawResponse.Request == nil {
		return false
	}
	return strings.HasSuffix(res.RawResponse.Request.URL.Path, loginPath)
}

func (s *session) openSearch(ctx context.Context) (err error) {
	ctx, span := startSpan(ctx, "navigation:open-search")
	defer func() { endSpan(span, err) }()

	body, err := s.ajax(ctx, s.homeUrl, menuQueriesPayload(s.viewState))
	if err != nil {
		s.tel.ReportBroken(report_navigation_open_search, fmt.Errorf("open queries: %w", err))
		return err
	}
	anchor := findMenuAnchor(body)
	if anchor == "" {
		err = notProcessed("queries menu did not render the authorizations anchor")
		s.tel.ReportWarning(report_navigation_open_search, err)
		return err
	}
	s.menuAnchor = anchor

	body, err = s.ajax(ctx, s.homeUrl, menuAnchorPayload(s.menuAnchor, s.viewState))
	if err != nil {
		s.tel.ReportBroken(report_navigation_open_search, fmt.Errorf("open search form: %w", err))
		return err
	}
	if !bytes.Contains(body, []byte(marker_search_form)) {
		err = notProcessed("search form marker missing after selecting %s", s.menuAnchor)
		s.tel.ReportWarning(report_navigation_open_search, err)
		return err
	}
	s.searchFields = extractFormFields(body, form_search)
	return nil
}

func findMenuAnchor(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(fragmentHTML(body)))
	if err != nil {
		return ""
	}
	var anchor string
	doc.Find(menu_anchor_selector).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(htmlutil.Text(a)), menu_anchor_text) {
			anchor = a.AttrOr("id", "")
			return anchor == ""
		}
		return true
	})
	if anchor == "" {
		anchor = doc.Find(menu_anchor_fallback_sel).First().AttrOr("id", "")
	}
	return anchor
}

func (s *session) setDocumentType(ctx context.Context) (err error) {
	ctx, span := startSpan(ctx, "navigation:set-document-type")
	defer func() { endSpan(span, err) }()

	_, err = s.ajax(ctx, s.homeUrl, documentTypePayload(s.searchFields, s.docCode, s.viewState))
	if err != nil {
		s.tel.ReportBroken(report_navigation_document, err, s.docType)
		return err
	}
	return nil
}

func (s *session) search(ctx context.Context) (fragment []byte, msg Message, err error) {
	ctx, span := startSpan(ctx, "navigation:search")
	defer func() { endSpan(span, err) }()

	body, err := s.ajax(ctx, s.homeUrl, searchPayload(s.searchFields, s.docCode, s.docNumber, s.viewState))
	if err != nil {
		s.tel.ReportBroken(report_navigation_search, err)
		return nil, MessageNone, err
	}

	switch {
	case bytes.Contains(body, []byte(marker_no_pending)):
		return nil, MessageNoPending, nil
	case bytes.Contains(bytes.ToLower(body), []byte(marker_no_record)):
		return nil, MessageNoRecord, nil
	}
	return fragmentHTML(body), MessageNone, nil
}
