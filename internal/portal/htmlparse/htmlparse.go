// Package htmlparse scrapes the portal's server-rendered pages into
// domain entities. The selectors are specific to the portal's markup and
// fail with *domain.ParseError when the structure is not found.
package htmlparse

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"fdu/internal/portal/domain"

	"github.com/PuerkitoBio/goquery"
)

const (
	// NoRecordsMarker is the placeholder the portal shows for an empty zone.
	NoRecordsMarker = "No records to display."

	// LoggedInMarker only appears on pages served to an authenticated session.
	LoggedInMarker = `<section class="greeting">`

	errorClass   = "dnserror"
	successClass = "dnssuccess"
)

func parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &domain.ParseError{What: "html", Err: err}
	}
	return doc, nil
}

// Token returns the value of the first form control named "token".
func Token(html string) (string, error) {
	doc, err := parse(html)
	if err != nil {
		return "", err
	}
	value, ok := doc.Find(`input[name="token"]`).First().Attr("value")
	if !ok || value == "" {
		return "", &domain.NoTokenError{}
	}
	return value, nil
}

// IsLoggedIn reports whether the page was served to an authenticated session.
func IsLoggedIn(html string) bool {
	return strings.Contains(html, LoggedInMarker)
}

// Domains parses the domain list table.
func Domains(html string) ([]domain.Domain, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}
	form := doc.Find("form#bulkactionform")
	if form.Length() == 0 {
		return nil, &domain.ParseError{What: "domain list", Err: errors.New("bulk action form not found")}
	}

	rows := form.Find("tbody > tr")
	domains := make([]domain.Domain, 0, rows.Length())
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		var d domain.Domain
		d, err = parseDomainRow(row)
		if err != nil {
			err = &domain.ParseError{What: fmt.Sprintf("domain row %d", i), Err: err}
			return false
		}
		domains = append(domains, d)
		return true
	})
	if err != nil {
		return nil, err
	}
	return domains, nil
}

func parseDomainRow(row *goquery.Selection) (domain.Domain, error) {
	cells := row.Find("td")
	if cells.Length() < 6 {
		return domain.Domain{}, fmt.Errorf("expected 6 columns, got %d", cells.Length())
	}
	text := func(i int) string {
		return strings.TrimSpace(cells.Eq(i).Text())
	}

	registered, err := domain.ParseDate(text(1))
	if err != nil {
		return domain.Domain{}, fmt.Errorf("register date: %w", err)
	}
	expires, err := domain.ParseDate(text(2))
	if err != nil {
		return domain.Domain{}, fmt.Errorf("expire date: %w", err)
	}

	href, ok := cells.Eq(5).Find("a").First().Attr("href")
	if !ok {
		return domain.Domain{}, errors.New("detail link not found")
	}
	link, err := url.Parse(href)
	if err != nil {
		return domain.Domain{}, fmt.Errorf("detail link: %w", err)
	}
	id := link.Query().Get("id")
	if id == "" {
		return domain.Domain{}, fmt.Errorf("detail link %q has no id", href)
	}

	return domain.Domain{
		ID:           id,
		Name:         domain.NormalizeName(text(0)),
		RegisterDate: registered,
		ExpireDate:   expires,
		State:        text(3),
		Type:         text(4),
	}, nil
}

// Records parses the DNS record table of a zone management page. The
// returned records have no domain attached.
func Records(html string) ([]domain.Record, error) {
	if strings.Contains(html, NoRecordsMarker) {
		return []domain.Record{}, nil
	}
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}
	marker := doc.Find(`input[name="dnsaction"][value="modify"]`).First()
	if marker.Length() == 0 {
		return nil, &domain.ParseError{What: "record list", Err: errors.New("modify form not found")}
	}

	rows := marker.Parent().Find("tbody > tr")
	records := make([]domain.Record, 0, rows.Length())
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		var rec domain.Record
		rec, err = parseRecordRow(row)
		if err != nil {
			err = &domain.ParseError{What: fmt.Sprintf("record row %d", i), Err: err}
			return false
		}
		records = append(records, rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Rows hold a line number control followed by type, name, ttl and value.
func parseRecordRow(row *goquery.Selection) (domain.Record, error) {
	inputs := row.Find("input")
	if inputs.Length() < 5 {
		return domain.Record{}, fmt.Errorf("expected 5 inputs, got %d", inputs.Length())
	}
	value := func(i int) string {
		v, _ := inputs.Eq(i).Attr("value")
		return strings.TrimSpace(v)
	}

	rt, err := domain.ParseRecordType(value(1))
	if err != nil {
		return domain.Record{}, err
	}
	ttl, err := strconv.Atoi(value(3))
	if err != nil {
		return domain.Record{}, fmt.Errorf("ttl: %w", err)
	}
	return domain.NewRecord(value(2), rt, ttl, value(4)), nil
}

// Outcome returns the text of every DNS error element and the number of
// DNS success elements on a page returned by a record mutation.
func Outcome(html string) (errs []string, successes int, err error) {
	doc, err := parse(html)
	if err != nil {
		return nil, 0, err
	}
	doc.Find("." + errorClass).Each(func(_ int, s *goquery.Selection) {
		errs = append(errs, strings.TrimSpace(s.Text()))
	})
	return errs, doc.Find("." + successClass).Length(), nil
}

// URLForward returns the forward target and the selected forward mode.
func URLForward(html string) (target, mode string, err error) {
	doc, err := parse(html)
	if err != nil {
		return "", "", err
	}
	input := doc.Find("input#url").First()
	option := doc.Find(`option[selected]`).First()
	if input.Length() == 0 || option.Length() == 0 {
		return "", "", &domain.ParseError{What: "url forward", Err: errors.New("forward form controls not found")}
	}
	target, _ = input.Attr("value")
	mode, _ = option.Attr("value")
	return target, mode, nil
}
