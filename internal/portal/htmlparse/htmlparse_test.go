package htmlparse

import (
	"errors"
	"testing"
	"time"

	"fdu/internal/portal/domain"

	"github.com/google/go-cmp/cmp"
)

const domainPage = `<!DOCTYPE html>
<html><body>
<section class="greeting">Hello</section>
<form id="bulkactionform" method="post" action="clientarea.php?action=domains">
<input type="hidden" name="token" value="3f1b2c">
<table class="table">
<thead><tr><th>Domain</th><th>Registration</th><th>Expiry</th><th>Status</th><th>Type</th><th></th></tr></thead>
<tbody>
<tr>
  <td> Domain.TK </td>
  <td>2016-02-09</td>
  <td>2017-02-09</td>
  <td>Active</td>
  <td>Free</td>
  <td><a class="smallBtn" href="clientarea.php?action=domaindetails&id=1065251102">Manage Domain</a></td>
</tr>
<tr>
  <td>other.ml</td>
  <td>01/03/2016</td>
  <td>01/03/2017</td>
  <td>Active</td>
  <td>Free</td>
  <td><a href="clientarea.php?action=domaindetails&amp;id=1065251103">Manage Domain</a></td>
</tr>
</tbody>
</table>
</form>
</body></html>`

const recordPage = `<!DOCTYPE html>
<html><body>
<form id="recordsform" method="post" action="clientarea.php?managedns=domain.tk&domainid=1065251102">
<input type="hidden" name="token" value="abc123">
<input type="hidden" name="dnsaction" value="modify">
<table>
<tbody>
<tr>
  <td><input type="hidden" name="records[0][line]" value=""><input type="hidden" name="records[0][type]" value="A"></td>
  <td><input type="text" name="records[0][name]" value=""></td>
  <td><input type="text" name="records[0][ttl]" value="14440"></td>
  <td><input type="text" name="records[0][value]" value="49.20.57.31"></td>
</tr>
<tr>
  <td><input type="hidden" name="records[1][line]" value=""><input type="hidden" name="records[1][type]" value="AAAA"></td>
  <td><input type="text" name="records[1][name]" value="IPV6"></td>
  <td><input type="text" name="records[1][ttl]" value="800"></td>
  <td><input type="text" name="records[1][value]" value="2a04:dd00::327b:8888"></td>
</tr>
</tbody>
</table>
</form>
</body></html>`

func TestToken(t *testing.T) {
	got, err := Token(recordPage)
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != "abc123" {
		t.Errorf("Token = %q, want abc123", got)
	}
}

func TestToken_Missing(t *testing.T) {
	pages := []string{
		`<html><body><form></form></body></html>`,
		`<html><body><input name="token" value=""></body></html>`,
	}
	for _, page := range pages {
		_, err := Token(page)
		var nte *domain.NoTokenError
		if !errors.As(err, &nte) {
			t.Errorf("expected *domain.NoTokenError, got %v", err)
		}
	}
}

func TestDomains(t *testing.T) {
	got, err := Domains(domainPage)
	if err != nil {
		t.Fatalf("Domains: %v", err)
	}
	want := []domain.Domain{
		{
			ID:           "1065251102",
			Name:         "domain.tk",
			RegisterDate: time.Date(2016, 2, 9, 0, 0, 0, 0, time.UTC),
			ExpireDate:   time.Date(2017, 2, 9, 0, 0, 0, 0, time.UTC),
			State:        "Active",
			Type:         "Free",
		},
		{
			ID:           "1065251103",
			Name:         "other.ml",
			RegisterDate: time.Date(2016, 3, 1, 0, 0, 0, 0, time.UTC),
			ExpireDate:   time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC),
			State:        "Active",
			Type:         "Free",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Domains mismatch (-want +got):\n%s", diff)
	}
}

func TestDomains_Empty(t *testing.T) {
	page := `<html><body><form id="bulkactionform"><table><tbody></tbody></table></form></body></html>`
	got, err := Domains(page)
	if err != nil {
		t.Fatalf("Domains: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", got)
	}
}

func TestDomains_ParseErrors(t *testing.T) {
	tests := map[string]string{
		"irrelevant page": `<html><body><p>Please log in</p></body></html>`,
		"empty page":      ``,
		"bad date":        `<form id="bulkactionform"><table><tbody><tr>
			<td>a.tk</td><td>yesterday</td><td>2017-02-09</td><td>Active</td><td>Free</td>
			<td><a href="clientarea.php?id=1">x</a></td></tr></tbody></table></form>`,
		"missing id": `<form id="bulkactionform"><table><tbody><tr>
			<td>a.tk</td><td>2016-02-09</td><td>2017-02-09</td><td>Active</td><td>Free</td>
			<td><a href="clientarea.php?action=domaindetails">x</a></td></tr></tbody></table></form>`,
	}
	for name, page := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Domains(page)
			var pe *domain.ParseError
			if !errors.As(err, &pe) {
				t.Errorf("expected *domain.ParseError, got %v", err)
			}
		})
	}
}

func TestRecords(t *testing.T) {
	got, err := Records(recordPage)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	want := []domain.Record{
		{Name: "", Type: domain.RecordTypeA, TTL: 14440, Target: "49.20.57.31"},
		{Name: "IPV6", Type: domain.RecordTypeAAAA, TTL: 800, Target: "2a04:dd00::327b:8888"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Records mismatch (-want +got):\n%s", diff)
	}
	for _, r := range got {
		if r.Domain != nil {
			t.Errorf("parsed record %s should have no domain", r)
		}
	}
}

func TestRecords_NoRecordsMarker(t *testing.T) {
	// The marker short-circuits parsing, even on otherwise broken markup.
	page := `<div><p>No records to display.</p>`
	got, err := Records(page)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", got)
	}
}

func TestRecords_ParseErrors(t *testing.T) {
	tests := map[string]string{
		"no modify form": `<html><body><form><input name="dnsaction" value="add"></form></body></html>`,
		"unknown type":   `<form><input name="dnsaction" value="modify"><table><tbody><tr><td>
			<input value=""><input value="SRV"><input value="x"><input value="60"><input value="y">
			</td></tr></tbody></table></form>`,
		"bad ttl": `<form><input name="dnsaction" value="modify"><table><tbody><tr><td>
			<input value=""><input value="A"><input value="x"><input value="soon"><input value="1.2.3.4">
			</td></tr></tbody></table></form>`,
	}
	for name, page := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Records(page)
			var pe *domain.ParseError
			if !errors.As(err, &pe) {
				t.Errorf("expected *domain.ParseError, got %v", err)
			}
		})
	}
}

func TestOutcome(t *testing.T) {
	page := `<html><body>
		<ul><li class="dnserror"> Invalid value </li><li class="alert dnserror">There were no changes</li></ul>
		<p class="dnssuccess">Record added successfully</p>
	</body></html>`

	errs, successes, err := Outcome(page)
	if err != nil {
		t.Fatalf("Outcome: %v", err)
	}
	if diff := cmp.Diff([]string{"Invalid value", "There were no changes"}, errs); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
	if successes != 1 {
		t.Errorf("successes = %d, want 1", successes)
	}

	errs, successes, err = Outcome(`<html><body></body></html>`)
	if err != nil || len(errs) != 0 || successes != 0 {
		t.Errorf("Outcome on plain page = %v, %d, %v", errs, successes, err)
	}
}

func TestIsLoggedIn(t *testing.T) {
	if !IsLoggedIn(domainPage) {
		t.Error("expected greeting section to mark the session as logged in")
	}
	if IsLoggedIn(recordPage) {
		t.Error("expected page without greeting to be logged out")
	}
}

func TestURLForward(t *testing.T) {
	page := `<form>
		<input type="text" id="url" name="url" value="https://example.com/">
		<select name="mode"><option value="301_redirect">Redirect</option><option value="cloak" selected="selected">Cloak</option></select>
	</form>`

	target, mode, err := URLForward(page)
	if err != nil {
		t.Fatalf("URLForward: %v", err)
	}
	if target != "https://example.com/" || mode != "cloak" {
		t.Errorf("URLForward = %q, %q", target, mode)
	}

	_, _, err = URLForward(`<form><input id="url" value="x"></form>`)
	var pe *domain.ParseError
	if !errors.As(err, &pe) {
		t.Errorf("expected *domain.ParseError without a selected option, got %v", err)
	}
}
