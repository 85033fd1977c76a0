package portal

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"time"

	"medauth-backend/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_transport_get  = "transport.get"
	report_transport_post = "transport.post"
)

type transportOptions struct {
	BaseUrl           string
	Timeout           time.Duration
	RequestsPerSecond float64
	CloudflareBypass  bool
	Output            telemetry.MessageOutput
}

// transport owns the http session of a single lookup, cookies live as long as it does.
type transport struct {
	http   *resty.Client
	origin string
	tel    telemetry.API
}

func newTransport(opts transportOptions, tel telemetry.API) (*transport, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseUrl.Scheme == "" || baseUrl.Host == "" {
		return nil, fmt.Errorf("base url %q is not absolute", opts.BaseUrl)
	}

	httpClient := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeader("User-Agent", user_agent)
	httpClient.SetHeader("Accept-Language", "es-CO,es;q=0.9,en;q=0.8")
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient.SetTimeout(timeout)

	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = max(1, int(opts.RequestsPerSecond))
	}
	// max burst >= rps just means that no requests will be dropped
	rateLimiter := rate.NewLimiter(limit, burst)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel, opts.Output)

	return &transport{
		http:   httpClient,
		origin: fmt.Sprintf("%s://%s", baseUrl.Scheme, baseUrl.Host),
		tel:    tel,
	}, nil
}

func checkStatus(res *resty.Response) error {
	code := res.StatusCode()
	if code >= 200 && code <= 299 {
		return nil
	}
	return &StatusError{
		Method: res.Request.Method,
		Url:    res.Request.URL,
		Status: code,
	}
}

func (t *transport) Get(ctx context.Context, endpoint string) (*resty.Response, error) {
	res, err := t.http.R().
		SetContext(ctx).
		SetHeader("Accept", page_accept).
		Get(endpoint)
	if err != nil {
		t.tel.ReportBroken(report_transport_get, fmt.Errorf("fetch: %w", err), endpoint)
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	err = checkStatus(res)
	if err != nil {
		t.tel.ReportBroken(report_transport_get, err)
		return nil, err
	}
	return res, nil
}

// Post submits the fields form-encoded. AJAX posts carry the JSF partial request headers,
// full posts look like a regular form submit.
func (t *transport) Post(ctx context.Context, endpoint string, fields url.Values, ajax bool) (*resty.Response, error) {
	req := t.http.R().
		SetContext(ctx).
		SetHeader("Origin", t.origin).
		SetHeader("Referer", endpoint).
		SetHeader("Content-Type", ajax_content_type).
		SetBody(fields.Encode())
	if ajax {
		req.SetHeader("Faces-Request", "partial/ajax").
			SetHeader("X-Requested-With", "XMLHttpRequest").
			SetHeader("Accept", ajax_accept)
	} else {
		req.SetHeader("Accept", page_accept)
	}

	res, err := req.Post(endpoint)
	if err != nil {
		t.tel.ReportBroken(report_transport_post, fmt.Errorf("fetch: %w", err), endpoint, fields.Get(field_source))
		return nil, fmt.Errorf("POST %s: %w", endpoint, err)
	}
	err = checkStatus(res)
	if err != nil {
		t.tel.ReportBroken(report_transport_post, err, fields.Get(field_source))
		return nil, err
	}
	return res, nil
}

// Close releases the connections held by the session.
func (t *transport) Close() {
	t.http.GetClient().CloseIdleConnections()
}
