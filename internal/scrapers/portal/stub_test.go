package portal

import (
	_ "embed"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"medauth-backend/internal/components/chrono"
	"medauth-backend/internal/components/retry"
	"medauth-backend/internal/components/telemetry"
)

//go:embed testdata/login.html
var loginPage string

//go:embed testdata/home.html
var homePage string

//go:embed testdata/menu_queries.html
var menuQueriesFragment string

//go:embed testdata/search_form.html
var searchFormFragment string

//go:embed testdata/results.html
var resultsFragment string

//go:embed testdata/detail.html
var detailFragment string

//go:embed testdata/line_items.html
var lineItemRows string

//go:embed testdata/line_items_empty.html
var emptyLineItemRows string

//go:embed testdata/view.html
var viewFragment string

const (
	stubUsername = "drogueria"
	stubPassword = "s3creta"
	stubDocument = "1020304050"
	stubAnchor   = "formMenu:j_idt42"
)

var stubDay = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

func stubPartial(viewState string, updates ...[2]string) string {
	var b strings.Builder
	b.WriteString("<?xml version='1.0' encoding='UTF-8'?>\n")
	b.WriteString(`<partial-response id="j_id1"><changes>`)
	for _, u := range updates {
		fmt.Fprintf(&b, `<update id="%s"><![CDATA[%s]]></update>`, u[0], u[1])
	}
	fmt.Fprintf(&b, `<update id="j_id1:javax.faces.ViewState:0"><![CDATA[%s]]></update>`, viewState)
	b.WriteString(`</changes></partial-response>`)
	return b.String()
}

func partialError(message string) string {
	return "<?xml version='1.0' encoding='UTF-8'?>\n" +
		`<partial-response id="j_id1"><error><error-name>javax.faces.FacesException</error-name>` +
		`<error-message><![CDATA[` + message + `]]></error-message></error></partial-response>`
}

// partialErrorWithState is an error envelope that still rotates the view state.
func partialErrorWithState(viewState, message string) string {
	return "<?xml version='1.0' encoding='UTF-8'?>\n" +
		`<partial-response id="j_id1"><changes>` +
		`<update id="j_id1:javax.faces.ViewState:0"><![CDATA[` + viewState + `]]></update></changes>` +
		`<error><error-name>javax.faces.FacesException</error-name>` +
		`<error-message><![CDATA[` + message + `]]></error-message></error></partial-response>`
}

type stubSession struct {
	token    int
	loggedIn bool
}

// stubPortal imitates the portal closely enough for the scraper to walk it. Every
// request after the first has to echo the last view state the session was given,
// anything else is answered with a 400 so token handling mistakes fail loudly.
type stubPortal struct {
	mu       sync.Mutex
	t        testing.TB
	sessions map[string]*stubSession
	nextID   int

	// failures to inject, each counter is decremented when it fires
	unprocessedSearchForm int
	emptyLineItems        int
	closeErrors           int
	menuErrors            int
	detailErrors          int

	// rotateOnError issues a new view state with every error envelope
	rotateOnError bool

	searchBody           string
	ambiguousLogin       bool
	confirmWithoutNumber bool
	viewWithoutNumber    bool
	detailWithoutMarker  bool

	logins   int
	requests []string
}

func newStubPortal(t testing.TB) (*stubPortal, *httptest.Server) {
	stub := &stubPortal{
		t:          t,
		sessions:   map[string]*stubSession{},
		searchBody: resultsFragment,
	}
	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)
	return stub, server
}

func (p *stubPortal) session(w http.ResponseWriter, r *http.Request) *stubSession {
	cookie, err := r.Cookie("JSESSIONID")
	if err == nil {
		if sess, ok := p.sessions[cookie.Value]; ok {
			return sess
		}
	}
	p.nextID++
	id := fmt.Sprintf("session-%d", p.nextID)
	sess := &stubSession{}
	p.sessions[id] = sess
	http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: id, Path: "/"})
	return sess
}

func (p *stubPortal) issue(sess *stubSession) string {
	sess.token++
	return fmt.Sprintf("-%d:%d", 4400000000+sess.token, sess.token)
}

func (p *stubPortal) current(sess *stubSession) string {
	return fmt.Sprintf("-%d:%d", 4400000000+sess.token, sess.token)
}

func (p *stubPortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sess := p.session(w, r)

	if r.Method == http.MethodGet {
		p.requests = append(p.requests, "GET "+r.URL.Path)
		switch r.URL.Path {
		case default_login_path:
			p.logins++
			sess.loggedIn = false
			fmt.Fprintf(w, loginPage, p.issue(sess))
		case default_home_path:
			if !sess.loggedIn {
				http.Redirect(w, r, default_login_path, http.StatusFound)
				return
			}
			fmt.Fprintf(w, homePage, p.issue(sess))
		default:
			http.NotFound(w, r)
		}
		return
	}

	err := r.ParseForm()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.PostForm.Get(field_view_state) != p.current(sess) {
		p.t.Errorf("stale view state on %s: got %q, want %q", r.PostForm.Get(field_source), r.PostForm.Get(field_view_state), p.current(sess))
		http.Error(w, "stale view state", http.StatusBadRequest)
		return
	}

	if r.Header.Get("Faces-Request") != "partial/ajax" {
		p.requests = append(p.requests, "POST "+r.URL.Path)
		p.fullLogin(w, r, sess)
		return
	}

	source := r.PostForm.Get(field_source)
	p.requests = append(p.requests, source)
	w.Header().Set("Content-Type", "text/xml;charset=UTF-8")

	if r.URL.Path == default_login_path {
		if source != widget_user_type || r.PostForm.Get(field_user_type) != user_type_provider {
			http.Error(w, "unexpected login ajax", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, stubPartial(p.issue(sess), [2]string{"formLogin:panelCredenciales", `<div id="formLogin:panelCredenciales"><input name="formLogin:usuario" type="text" value="" /></div>`}))
		return
	}

	if !sess.loggedIn {
		http.Redirect(w, r, default_login_path, http.StatusFound)
		return
	}
	p.homeAjax(w, r, sess, source)
}

func (p *stubPortal) fullLogin(w http.ResponseWriter, r *http.Request, sess *stubSession) {
	form := r.PostForm
	if form.Get(field_username) != stubUsername || form.Get(field_password) != stubPassword || form.Get(field_user_type) != user_type_provider {
		fmt.Fprintf(w, loginPage, p.issue(sess))
		return
	}
	if form.Get("formLogin:canal") != "WEB" {
		http.Error(w, "login form fields were not echoed", http.StatusBadRequest)
		return
	}
	sess.loggedIn = true
	if p.ambiguousLogin {
		fmt.Fprint(w, `<html><body><p>Redireccionando...</p></body></html>`)
		return
	}
	fmt.Fprintf(w, homePage, p.issue(sess))
}

func (p *stubPortal) homeAjax(w http.ResponseWriter, r *http.Request, sess *stubSession, source string) {
	form := r.PostForm
	switch {
	case source == widget_menu_queries:
		fmt.Fprint(w, stubPartial(p.issue(sess), [2]string{form_menu, menuQueriesFragment}))

	case source == stubAnchor:
		if form.Get(field_menu_selected) != stubAnchor {
			http.Error(w, "menu selection missing", http.StatusBadRequest)
			return
		}
		if p.menuErrors > 0 {
			p.menuErrors--
			p.fail(w, sess, "javax.faces.application.ViewExpiredException")
			return
		}
		if p.unprocessedSearchForm > 0 {
			p.unprocessedSearchForm--
			fmt.Fprint(w, stubPartial(p.issue(sess), [2]string{render_menu_content, `<div id="formContenido"></div>`}))
			return
		}
		fmt.Fprint(w, stubPartial(p.issue(sess), [2]string{render_menu_content, searchFormFragment}))

	case source == widget_document_type:
		if form.Get(field_document_type) != "1" || form.Get("formBusqueda:sede") != "SEDE-04" {
			http.Error(w, "unexpected document type", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, stubPartial(p.issue(sess), [2]string{render_document_type, `<div id="formBusqueda:panelFiltros"></div>`}))

	case source == widget_search_button:
		if form.Get(field_document_number) != stubDocument || form.Get("formBusqueda:fechaDesde_input") != "" {
			http.Error(w, "unexpected search filters", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, stubPartial(p.issue(sess), [2]string{"formBusqueda:tablaResultados", p.searchBody}))

	case strings.HasSuffix(source, ":lupa"):
		if p.detailErrors > 0 {
			p.detailErrors--
			p.fail(w, sess, "java.lang.NullPointerException")
			return
		}
		marker := "<legend>Información de la Atención</legend>"
		body := fmt.Sprintf(detailFragment, p.lineItems(), "")
		if p.detailWithoutMarker {
			body = strings.Replace(body, marker, "<legend></legend>", 1)
		}
		fmt.Fprint(w, stubPartial(p.issue(sess), [2]string{form_detail, body}))

	case source == widget_service_date:
		if form.Get(field_service_date) != stubDay.Format(service_date_layout) {
			http.Error(w, "unexpected service date", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, stubPartial(p.issue(sess), [2]string{widget_service_date, `<span id="formDetalle:fechaPrestacion"></span>`}))

	case source == widget_confirm_date:
		message := `<div class="ui-messages-info"><span class="ui-messages-info-summary">El Nro. para Facturar es: AS123456</span></div>`
		if p.confirmWithoutNumber {
			message = `<div class="ui-messages-info"><span class="ui-messages-info-summary">Fecha confirmada</span></div>`
		}
		fmt.Fprint(w, stubPartial(p.issue(sess), [2]string{form_detail, fmt.Sprintf(detailFragment, p.lineItems(), message)}))

	case source == line_items_table:
		if form.Get(line_items_table+"_pagination") != "true" {
			http.Error(w, "not a pagination request", http.StatusBadRequest)
			return
		}
		rows := p.lineItems()
		fmt.Fprint(w, stubPartial(p.issue(sess), [2]string{line_items_table, `<table><tbody id="formDetalle:tablaMedicamentos_data">` + rows + `</tbody></table>`}))

	case source == dialog_detail || source == dialog_view:
		if form.Get(field_behavior_event) != event_close {
			http.Error(w, "not a close event", http.StatusBadRequest)
			return
		}
		if p.closeErrors > 0 {
			p.closeErrors--
			p.fail(w, sess, "element not interactable")
			return
		}
		fmt.Fprint(w, stubPartial(p.issue(sess)))

	case strings.HasSuffix(source, ":ver"):
		number := "AS654321"
		if p.viewWithoutNumber {
			number = ""
		}
		fmt.Fprint(w, stubPartial(p.issue(sess), [2]string{form_view, fmt.Sprintf(viewFragment, number)}))

	default:
		http.Error(w, "unknown source "+source, http.StatusBadRequest)
	}
}

func (p *stubPortal) fail(w http.ResponseWriter, sess *stubSession, message string) {
	if p.rotateOnError {
		fmt.Fprint(w, partialErrorWithState(p.issue(sess), message))
		return
	}
	fmt.Fprint(w, partialError(message))
}

func (p *stubPortal) lineItems() string {
	if p.emptyLineItems > 0 {
		p.emptyLineItems--
		return emptyLineItemRows
	}
	return lineItemRows
}

func (p *stubPortal) count(request string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, r := range p.requests {
		if r == request {
			n++
		}
	}
	return n
}

func (p *stubPortal) loginCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.logins
}

func testOptions(baseUrl string) Options {
	opts := DefaultOptions()
	opts.BaseUrl = baseUrl
	opts.Username = stubUsername
	opts.Password = stubPassword
	opts.Timeout = 5 * time.Second
	opts.RequestsPerSecond = 0
	opts.Restart = retry.Policy{Attempts: 2}
	opts.LineItems = retry.Policy{Attempts: 3}
	opts.CloseDialog = retry.Policy{Attempts: 3}
	return opts
}

func newTestScraper(t testing.TB, opts Options) *Scraper {
	scraper, err := NewScraper(opts, telemetry.NewSlogAPI(nil), chrono.FixedTime{At: stubDay})
	if err != nil {
		t.Fatal(err)
	}
	return scraper
}
