// Package portal looks up pending medication authorizations on the provider portal by
// replaying the JSF/PrimeFaces ajax traffic a browser would send, no browser involved.
package portal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"medauth-backend/internal/components/assert"
	"medauth-backend/internal/components/chrono"
	"medauth-backend/internal/components/retry"
	"medauth-backend/internal/components/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("medauth.scrapers.portal")

const (
	report_find_user         = "scraper.find-user"
	report_find_user_restart = "scraper.restart"
	report_find_user_records = "scraper.records"
	report_find_user_skipped = "scraper.skipped-rows"
)

// Finder looks up the pending authorizations of a single document.
type Finder interface {
	FindUser(ctx context.Context, docType DocumentType, docNumber string) (Result, error)
}

type Options struct {
	BaseUrl   string
	LoginPath string
	HomePath  string
	Username  string
	Password  string

	// Timeout applies to every single http call.
	Timeout           time.Duration
	RequestsPerSecond float64
	CloudflareBypass  bool
	// Output receives full http exchanges when it is not nil.
	Output telemetry.MessageOutput

	// Restart bounds how often the whole flow runs when the portal is inconsistent.
	Restart      retry.Policy
	LineItems    retry.Policy
	CloseDialog  retry.Policy
	ViewAttempts int
}

// DefaultOptions holds the retry bounds observed to absorb the portal's render lag.
func DefaultOptions() Options {
	return Options{
		LoginPath:         default_login_path,
		HomePath:          default_home_path,
		Timeout:           30 * time.Second,
		RequestsPerSecond: 2,
		Restart:           retry.Policy{Attempts: 2, Delay: time.Second},
		LineItems:         retry.Policy{Attempts: 3, Delay: 2 * time.Second},
		CloseDialog:       retry.Policy{Attempts: 3, Delay: time.Second},
		ViewAttempts:      2,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.LoginPath == "" {
		o.LoginPath = d.LoginPath
	}
	if o.HomePath == "" {
		o.HomePath = d.HomePath
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.Restart.Attempts <= 0 {
		o.Restart.Attempts = d.Restart.Attempts
	}
	if o.LineItems.Attempts <= 0 {
		o.LineItems.Attempts = d.LineItems.Attempts
	}
	if o.CloseDialog.Attempts <= 0 {
		o.CloseDialog.Attempts = d.CloseDialog.Attempts
	}
	if o.ViewAttempts <= 0 {
		o.ViewAttempts = d.ViewAttempts
	}
	return o
}

// Scraper holds only immutable configuration, every FindUser call creates its own
// sessions so it can be shared between goroutines.
type Scraper struct {
	opts      Options
	loginUrl  string
	homeUrl   string
	loginPath string
	tel       telemetry.API
	clock     chrono.TimeAPI
}

func NewScraper(opts Options, tel telemetry.API, clock chrono.TimeAPI) (*Scraper, error) {
	assert.NotNil(tel, "telemetry")
	assert.NotNil(clock, "clock")

	opts = opts.withDefaults()
	base, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q is not absolute", opts.BaseUrl)
	}

	join := func(path string) string {
		return strings.TrimSuffix(base.String(), "/") + "/" + strings.TrimPrefix(path, "/")
	}
	loginUrl := join(opts.LoginPath)
	parsedLogin, err := url.Parse(loginUrl)
	if err != nil {
		return nil, fmt.Errorf("parse login url: %w", err)
	}

	return &Scraper{
		opts:      opts,
		loginUrl:  loginUrl,
		homeUrl:   join(opts.HomePath),
		loginPath: parsedLogin.Path,
		tel:       telemetry.NewScopedAPI("portal_scraper", tel),
		clock:     clock,
	}, nil
}

// FindUser looks up the approved, pending authorizations of a document. Benign outcomes
// (nothing pending, unknown document, no line items) come back as Result.Message.
func (s *Scraper) FindUser(ctx context.Context, docType DocumentType, docNumber string) (result Result, err error) {
	ctx, span := tracer.Start(ctx, "FindUser")
	span.SetAttributes(attribute.String("document_type", string(docType)))
	defer func() { endSpan(span, err) }()

	code, ok := docType.portalCode()
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedDocumentType, docType)
	}
	docNumber = strings.TrimSpace(docNumber)
	if docNumber == "" {
		return Result{}, fmt.Errorf("document number is empty")
	}

	policy := s.opts.Restart
	policy.OnRetry = func(attempt int, err error) {
		s.tel.ReportWarning(report_find_user_restart, err, attempt, docType)
	}
	result, err = retry.Value(ctx, policy, retry.On(ErrNotProcessed), func(ctx context.Context, attempt int) (Result, error) {
		return s.attempt(ctx, docType, code, docNumber)
	})
	if err != nil {
		s.tel.ReportBroken(report_find_user, err, docType, docNumber)
		return Result{}, err
	}

	s.tel.ReportCount(report_find_user_records, int64(len(result.Records)))
	return result, nil
}

// attempt is one full pass through the portal on a fresh session.
func (s *Scraper) attempt(ctx context.Context, docType DocumentType, code, docNumber string) (Result, error) {
	http, err := newTransport(transportOptions{
		BaseUrl:           s.opts.BaseUrl,
		Timeout:           s.opts.Timeout,
		RequestsPerSecond: s.opts.RequestsPerSecond,
		CloudflareBypass:  s.opts.CloudflareBypass,
		Output:            s.opts.Output,
	}, s.tel)
	if err != nil {
		return Result{}, err
	}
	defer http.Close()

	sess := &session{
		http:      http,
		loginUrl:  s.loginUrl,
		homeUrl:   s.homeUrl,
		loginPath: s.loginPath,
		tel:       s.tel,
		clock:     s.clock,
		docType:   docType,
		docCode:   code,
		docNumber: docNumber,
	}

	fragment, msg, err := sess.navigate(ctx, credentials{
		Username: s.opts.Username,
		Password: s.opts.Password,
	})
	if err != nil {
		return Result{}, err
	}
	if msg != MessageNone {
		return messageResult(msg), nil
	}

	rows, err := parseRows(fragment)
	if err != nil {
		return Result{}, err
	}
	if len(rows) == 0 {
		return messageResult(MessageNoPending), nil
	}

	policy := rowPolicy{
		LineItems:    s.opts.LineItems,
		CloseDialog:  s.opts.CloseDialog,
		ViewAttempts: s.opts.ViewAttempts,
	}

	var records []AuthorizationRecord
	withoutItems := 0
	withoutNumber := 0
	for _, row := range rows {
		record, err := sess.extractRow(ctx, row, policy)
		switch {
		case errors.Is(err, ErrNoLineItems):
			withoutItems++
			continue
		case errors.Is(err, ErrNumberNotFound):
			withoutNumber++
			continue
		case err != nil:
			return Result{}, err
		}
		records = append(records, record)
	}
	if withoutItems+withoutNumber > 0 {
		s.tel.ReportCount(report_find_user_skipped, int64(withoutItems+withoutNumber))
	}

	if len(records) > 0 {
		return Result{Records: records}, nil
	}
	if withoutItems > 0 {
		return messageResult(MessageNoLineItems), nil
	}
	// every approved row lost its number, that is the portal and not the rows
	return Result{}, notProcessed("none of %d approved rows yielded an authorization number", withoutNumber)
}
