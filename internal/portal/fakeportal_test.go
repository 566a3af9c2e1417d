package portal

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"fdu/internal/portal/domain"
	"fdu/internal/portal/transport"

	"github.com/sirupsen/logrus"
)

const fakeToken = "tok-9f2c41"

type call struct {
	Method  string
	Path    string
	Query   url.Values
	Form    url.Values
	Body    string
	Referer string
	Host    string
}

// fakePortal serves a minimal imitation of the control panel's pages.
type fakePortal struct {
	srv *httptest.Server

	mu          sync.Mutex
	user        string
	password    string
	loggedIn    bool
	domains     []domain.Domain
	records     map[string][]domain.Record
	calls       []call
	nextErrors  []string
	omitToken   bool
	failStatus  int
	forwardURL  string
	forwardMode string
	nameservers []string
}

func newFakePortal(t *testing.T) *fakePortal {
	t.Helper()
	p := &fakePortal{
		user:        "user@example.com",
		password:    "hunter2",
		records:     map[string][]domain.Record{},
		forwardURL:  "https://old.example.com/",
		forwardMode: ForwardRedirect,
	}
	p.srv = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.srv.Close)
	return p
}

func quietLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func (p *fakePortal) client(t *testing.T, opts ...Option) *Client {
	t.Helper()
	tr, err := transport.New(transport.WithCooldown(0), transport.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("transport.New: %v", err)
	}
	base := []Option{WithBaseURL(p.srv.URL), WithLogger(quietLogger())}
	return New(tr, append(base, opts...)...)
}

func (p *fakePortal) addDomain(d domain.Domain, records ...domain.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.domains = append(p.domains, d)
	p.records[d.ID] = append([]domain.Record{}, records...)
}

func (p *fakePortal) zone(id string) []domain.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Record{}, p.records[id]...)
}

func (p *fakePortal) takeCalls() []call {
	p.mu.Lock()
	defer p.mu.Unlock()
	calls := p.calls
	p.calls = nil
	return calls
}

func (p *fakePortal) countCalls(method, path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

func (p *fakePortal) lastPost() call {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.calls) - 1; i >= 0; i-- {
		if p.calls[i].Method == http.MethodPost {
			return p.calls[i]
		}
	}
	return call{}
}

func (p *fakePortal) serve(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(raw))
	_ = r.ParseForm()

	p.mu.Lock()
	defer p.mu.Unlock()

	q := r.URL.Query()
	p.calls = append(p.calls, call{
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   q,
		Form:    r.PostForm,
		Body:    string(raw),
		Referer: r.Referer(),
		Host:    r.Host,
	})

	if p.failStatus != 0 {
		w.WriteHeader(p.failStatus)
		return
	}
	if r.Method == http.MethodPost && r.PostForm.Get("token") != fakeToken {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	post := r.Method == http.MethodPost
	switch {
	case r.URL.Path == "/dologin.php" && post:
		if r.PostForm.Get("username") == p.user && r.PostForm.Get("password") == p.password {
			p.loggedIn = true
			http.Redirect(w, r, "/clientarea.php", http.StatusFound)
			return
		}
		p.write(w, `<div class="alert">Login Details Incorrect</div>`)

	case r.URL.Path == "/clientarea.php" && q.Get("action") == "domains":
		if post {
			p.write(w, p.domainTable())
			return
		}
		p.write(w, "")

	case r.URL.Path == "/clientarea.php" && q.Get("dnsaction") == "delete":
		p.delete(w, q)

	case r.URL.Path == "/clientarea.php" && q.Get("managedns") != "":
		if post {
			p.mutate(w, q.Get("domainid"), r.PostForm)
			return
		}
		p.write(w, p.recordTable(q.Get("domainid")))

	case r.URL.Path == "/clientarea.php" && q.Get("action") == "domaindetails":
		switch {
		case post && r.PostForm.Get("sub") == "savens":
			p.nameservers = []string{r.PostForm.Get("ns1"), r.PostForm.Get("ns2"), r.PostForm.Get("ns3"), r.PostForm.Get("ns4")}
			p.write(w, `<div class="alert-success">Changes Saved Successfully!</div>`)
		case post && r.PostForm.Get("save") == "true":
			p.forwardURL = r.PostForm.Get("url")
			p.forwardMode = r.PostForm.Get("mode")
			p.write(w, "")
		case post && q.Get("a") == "urlforwarding":
			p.write(w, p.forwardForm())
		default:
			p.write(w, "")
		}

	case r.URL.Path == "/clientarea.php":
		if p.loggedIn {
			p.write(w, `<section class="greeting">Hello</section>`)
			return
		}
		p.write(w, `<form action="dologin.php"></form>`)

	case r.URL.Path == "/domains.php" && q.Get("a") == "renewdomain":
		p.write(w, "")

	case r.URL.Path == "/domains.php" && q.Get("submitrenewals") == "true" && post:
		p.write(w, `<h1>Order Confirmation</h1>`)

	default:
		http.NotFound(w, r)
	}
}

func (p *fakePortal) write(w http.ResponseWriter, body string) {
	token := ""
	if !p.omitToken {
		token = fmt.Sprintf(`<input type="hidden" name="token" value="%s">`, fakeToken)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html><html><body><form id=\"tokenform\">%s</form>%s</body></html>", token, body)
}

func (p *fakePortal) domainTable() string {
	var b strings.Builder
	b.WriteString(`<form id="bulkactionform"><table><tbody>`)
	for _, d := range p.domains {
		fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td><a href="clientarea.php?action=domaindetails&amp;id=%s">Manage</a></td></tr>`,
			html.EscapeString(d.Name), d.RegisterDate.Format("2006-01-02"), d.ExpireDate.Format("02/01/2006"),
			d.State, d.Type, url.QueryEscape(d.ID))
	}
	b.WriteString(`</tbody></table></form>`)
	return b.String()
}

func (p *fakePortal) recordTable(domainID string) string {
	records := p.records[domainID]
	if len(records) == 0 {
		return `<p>No records to display.</p>`
	}
	var b strings.Builder
	b.WriteString(`<form id="records"><input type="hidden" name="dnsaction" value="modify"><table><tbody>`)
	for i, rec := range records {
		fmt.Fprintf(&b, `<tr><td><input type="hidden" name="records[%[1]d][line]" value=""><input type="hidden" name="records[%[1]d][type]" value="%[2]s"></td>`+
			`<td><input name="records[%[1]d][name]" value="%[3]s"></td><td><input name="records[%[1]d][ttl]" value="%[4]d"></td>`+
			`<td><input name="records[%[1]d][value]" value="%[5]s"></td></tr>`,
			i, rec.Type, html.EscapeString(rec.Name), rec.TTL, html.EscapeString(rec.Target))
	}
	b.WriteString(`</tbody></table></form>`)
	return b.String()
}

func (p *fakePortal) forwardForm() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<input type="text" id="url" name="url" value="%s"><select name="mode">`, html.EscapeString(p.forwardURL))
	for _, mode := range []string{ForwardRedirect, ForwardCloak} {
		selected := ""
		if mode == p.forwardMode {
			selected = ` selected="selected"`
		}
		fmt.Fprintf(&b, `<option value="%s"%s>%s</option>`, mode, selected, mode)
	}
	b.WriteString(`</select>`)
	return b.String()
}

func (p *fakePortal) outcome(w http.ResponseWriter, errs []string, successes int) {
	var b strings.Builder
	for _, e := range errs {
		fmt.Fprintf(&b, `<li class="dnserror">%s</li>`, html.EscapeString(e))
	}
	for i := 0; i < successes; i++ {
		b.WriteString(`<li class="dnssuccess">Record saved successfully</li>`)
	}
	p.write(w, b.String())
}

func (p *fakePortal) mutate(w http.ResponseWriter, domainID string, form url.Values) {
	if len(p.nextErrors) > 0 {
		errs := p.nextErrors
		p.nextErrors = nil
		p.outcome(w, errs, 0)
		return
	}

	switch form.Get("dnsaction") {
	case "add":
		rec, err := formRecord(form, "addrecord[0]")
		if err != nil {
			p.outcome(w, []string{err.Error()}, 0)
			return
		}
		p.records[domainID] = append(p.records[domainID], rec)
		p.outcome(w, nil, 1)

	case "modify":
		var table []domain.Record
		for i := 0; form.Has(fmt.Sprintf("records[%d][type]", i)); i++ {
			rec, err := formRecord(form, fmt.Sprintf("records[%d]", i))
			if err != nil {
				p.outcome(w, []string{err.Error()}, 0)
				return
			}
			table = append(table, rec)
		}
		if sameRecords(p.records[domainID], table) {
			p.outcome(w, []string{"There were no changes"}, 0)
			return
		}
		p.records[domainID] = table
		p.outcome(w, nil, 1)

	default:
		p.outcome(w, []string{"unknown action"}, 0)
	}
}

func (p *fakePortal) delete(w http.ResponseWriter, q url.Values) {
	id := q.Get("domainid")
	records := p.records[id]
	for i, rec := range records {
		if rec.Type.String() == q.Get("records") && rec.Name == q.Get("name") && rec.Target == q.Get("value") {
			p.records[id] = append(records[:i:i], records[i+1:]...)
			p.outcome(w, nil, 1)
			return
		}
	}
	p.outcome(w, []string{"Record not found"}, 0)
}

func formRecord(form url.Values, row string) (domain.Record, error) {
	rt, err := domain.ParseRecordType(form.Get(row + "[type]"))
	if err != nil {
		return domain.Record{}, err
	}
	ttl, err := strconv.Atoi(form.Get(row + "[ttl]"))
	if err != nil {
		return domain.Record{}, err
	}
	return domain.NewRecord(form.Get(row+"[name]"), rt, ttl, form.Get(row+"[value]")), nil
}

func sameRecords(a, b []domain.Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key() != b[i].Key() || a[i].TTL != b[i].TTL || a[i].Target != b[i].Target {
			return false
		}
	}
	return true
}
