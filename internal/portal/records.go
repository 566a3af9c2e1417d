package portal

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"fdu/internal/portal/domain"
	"fdu/internal/portal/htmlparse"
	"fdu/internal/portal/transport"

	"github.com/sirupsen/logrus"
)

// ListRecords returns the DNS records of d, each attached to d.
func (c *Client) ListRecords(ctx context.Context, d domain.Domain) ([]domain.Record, error) {
	if d.ID == "" || d.Name == "" {
		return nil, fmt.Errorf("list records of %s: %w", d.Name, domain.ErrDomainRequired)
	}
	resp, err := c.get(ctx, c.ManageDomainURL(d), nil)
	if err != nil {
		return nil, fmt.Errorf("list records of %s: %w", d.Name, err)
	}
	records, err := htmlparse.Records(resp.Text())
	if err != nil {
		return nil, fmt.Errorf("list records of %s: %w", d.Name, err)
	}
	owner := d
	for i := range records {
		records[i].Domain = &owner
	}
	return records, nil
}

func (c *Client) knownRecords(ctx context.Context, rec domain.Record, known []domain.Record) ([]domain.Record, error) {
	if known != nil {
		return known, nil
	}
	return c.ListRecords(ctx, *rec.Domain)
}

// GetMatchingRecord looks rec up by name and type in known, or in a freshly
// fetched list when known is nil. It returns nil when there is no match.
func (c *Client) GetMatchingRecord(ctx context.Context, rec domain.Record, known []domain.Record) (*domain.Record, error) {
	if known == nil {
		if err := rec.ValidateForPortal(); err != nil {
			return nil, err
		}
	}
	known, err := c.knownRecords(ctx, rec, known)
	if err != nil {
		return nil, err
	}
	match, ok := domain.FindRecord(known, rec.Key())
	if !ok {
		return nil, nil
	}
	return match, nil
}

// ContainsRecord reports whether a record with rec's name and type exists.
func (c *Client) ContainsRecord(ctx context.Context, rec domain.Record, known []domain.Record) (bool, error) {
	match, err := c.GetMatchingRecord(ctx, rec, known)
	return match != nil, err
}

// AddRecord adds rec to its domain and returns the number of records the
// portal confirmed. When a record with the same name and type already
// exists it is updated instead if upsert is set, otherwise AddRecord
// returns 0 without submitting anything. A nil known list is fetched.
func (c *Client) AddRecord(ctx context.Context, rec domain.Record, upsert bool, known []domain.Record) (int, error) {
	if err := rec.ValidateForPortal(); err != nil {
		return 0, err
	}
	known, err := c.knownRecords(ctx, rec, known)
	if err != nil {
		return 0, err
	}
	if _, exists := domain.FindRecord(known, rec.Key()); exists {
		if upsert {
			return c.UpdateRecord(ctx, rec, known)
		}
		return 0, nil
	}

	pageURL := c.ManageDomainURL(*rec.Domain)
	tok, err := c.token(ctx, pageURL)
	if err != nil {
		return 0, fmt.Errorf("add %s: %w", rec, err)
	}

	form := addForm(tok, rec)
	resp, err := c.post(ctx, pageURL, nil, form)
	if err != nil {
		return 0, fmt.Errorf("add %s: %w", rec, err)
	}
	errs, successes, err := htmlparse.Outcome(resp.Text())
	if err != nil {
		return 0, fmt.Errorf("add %s: %w", rec, err)
	}
	if len(errs) > 0 {
		return 0, &domain.AddError{RecordError: domain.RecordError{Messages: errs, Record: rec, Prior: known}}
	}

	c.mutationLog(rec, "add").WithField("confirmed", successes).Info("record added")
	return successes, nil
}

// UpdateRecord replaces the ttl and target of the record matching rec's
// name and type. The portal's modify form needs the whole table, so every
// other record is resubmitted unchanged.
func (c *Client) UpdateRecord(ctx context.Context, rec domain.Record, known []domain.Record) (int, error) {
	if err := rec.ValidateForPortal(); err != nil {
		return 0, err
	}
	known, err := c.knownRecords(ctx, rec, known)
	if err != nil {
		return 0, err
	}

	rows := make([]domain.Record, len(known))
	copy(rows, known)
	matched := false
	for i := range rows {
		if rows[i].Key() == rec.Key() {
			rows[i] = rec
			matched = true
		}
	}
	if !matched {
		c.mutationLog(rec, "update").Warn("no existing record matches; resubmitting table unchanged")
	}

	pageURL := c.ManageDomainURL(*rec.Domain)
	tok, err := c.token(ctx, pageURL)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", rec, err)
	}
	resp, err := c.post(ctx, pageURL, nil, modifyForm(tok, rows))
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", rec, err)
	}
	errs, successes, err := htmlparse.Outcome(resp.Text())
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", rec, err)
	}
	if len(errs) > 0 {
		return 0, &domain.UpdateError{RecordError: domain.RecordError{Messages: errs, Record: rec, Prior: known}}
	}

	c.mutationLog(rec, "update").WithField("confirmed", successes).Info("record updated")
	return successes, nil
}

// RemoveRecord deletes the record matching rec's name and type. The delete
// is sent with the fields of the stored record so a stale ttl or target on
// rec does not make the portal miss it.
func (c *Client) RemoveRecord(ctx context.Context, rec domain.Record, known []domain.Record) (bool, error) {
	if err := rec.ValidateForPortal(); err != nil {
		return false, err
	}
	known, err := c.knownRecords(ctx, rec, known)
	if err != nil {
		return false, err
	}
	stored, ok := domain.FindRecord(known, rec.Key())
	if !ok {
		msg := fmt.Sprintf("%s not found in records of %s", rec.Name, rec.Domain.Name)
		return false, &domain.RemoveError{RecordError: domain.RecordError{Messages: []string{msg}, Record: rec, Prior: known}}
	}

	d := *rec.Domain
	// The delete link only works after the management page set up the
	// session's current zone.
	if _, err := c.get(ctx, c.clientAreaURL(), url.Values{"managedns": {d.Name}, "domainid": {d.ID}}); err != nil {
		return false, fmt.Errorf("remove %s: %w", rec, err)
	}

	query := url.Values{
		"managedns": {d.Name},
		"records":   {stored.Type.String()},
		"dnsaction": {"delete"},
		"name":      {stored.Name},
		"value":     {stored.Target},
		"ttl":       {strconv.Itoa(stored.TTL)},
		"domainid":  {d.ID},
	}
	resp, err := c.get(ctx, c.clientAreaURL(), query)
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", rec, err)
	}
	errs, successes, err := htmlparse.Outcome(resp.Text())
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", rec, err)
	}
	if len(errs) > 0 {
		return false, &domain.UpdateError{RecordError: domain.RecordError{Messages: errs, Record: rec, Prior: known}}
	}
	if successes != 1 {
		msg := fmt.Sprintf("expected 1 success message, found %d", successes)
		return false, &domain.RemoveError{RecordError: domain.RecordError{Messages: []string{msg}, Record: rec, Prior: known}}
	}

	c.mutationLog(rec, "remove").Info("record removed")
	return true, nil
}

// RollbackUpdate resubmits records verbatim as the zone's full table, e.g.
// a list captured before a failed batch. It returns false for an empty list.
func (c *Client) RollbackUpdate(ctx context.Context, records []domain.Record) (bool, error) {
	if len(records) == 0 {
		return false, nil
	}
	owner := records[0].Domain
	if owner == nil || owner.ID == "" || owner.Name == "" {
		return false, fmt.Errorf("rollback: %w", domain.ErrDomainRequired)
	}

	pageURL := c.ManageDomainURL(*owner)
	tok, err := c.token(ctx, pageURL)
	if err != nil {
		return false, fmt.Errorf("rollback %s: %w", owner.Name, err)
	}
	resp, err := c.post(ctx, pageURL, nil, modifyForm(tok, records))
	if err != nil {
		return false, fmt.Errorf("rollback %s: %w", owner.Name, err)
	}
	errs, _, err := htmlparse.Outcome(resp.Text())
	if err != nil {
		return false, fmt.Errorf("rollback %s: %w", owner.Name, err)
	}
	if len(errs) > 0 {
		return false, &domain.UpdateError{RecordError: domain.RecordError{Messages: errs, Prior: records}}
	}

	c.log.WithFields(logrus.Fields{"domain": owner.Name, "records": len(records)}).Info("records rolled back")
	return true, nil
}

func addForm(token string, rec domain.Record) *transport.OrderedForm {
	const row = "addrecord[0]"
	form := &transport.OrderedForm{}
	form.Add("dnsaction", "add")
	form.Add("token", token)
	form.Add(row+"[name]", rec.Name)
	form.Add(row+"[type]", rec.Type.String())
	form.Add(row+"[ttl]", strconv.Itoa(rec.TTL))
	form.Add(row+"[value]", rec.Target)
	form.Add(row+"[priority]", "")
	form.Add(row+"[port]", "")
	form.Add(row+"[weight]", "")
	form.Add(row+"[forward_type]", "1")
	return form
}

// modifyForm lists the table row by row. The portal matches rows by
// position, so records[10] must not be sent between records[1] and
// records[2] as a key-sorted encoding would do.
func modifyForm(token string, records []domain.Record) *transport.OrderedForm {
	form := &transport.OrderedForm{}
	form.Add("dnsaction", "modify")
	form.Add("token", token)
	for i, rec := range records {
		row := fmt.Sprintf("records[%d]", i)
		form.Add(row+"[line]", "")
		form.Add(row+"[type]", rec.Type.String())
		form.Add(row+"[name]", rec.Name)
		form.Add(row+"[ttl]", strconv.Itoa(rec.TTL))
		form.Add(row+"[value]", rec.Target)
	}
	return form
}

func (c *Client) mutationLog(rec domain.Record, op string) *logrus.Entry {
	fields := logrus.Fields{
		"op":     op,
		"name":   rec.Name,
		"type":   rec.Type.String(),
		"target": rec.Target,
	}
	if rec.Domain != nil {
		fields["domain"] = rec.Domain.Name
	}
	return c.log.WithFields(fields)
}
