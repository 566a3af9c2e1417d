package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"fdu/internal/portal/domain"
	"fdu/internal/portal/htmlparse"

	"github.com/sirupsen/logrus"
)

const (
	// RenewWindowDays is how close to expiry a free domain can be renewed.
	RenewWindowDays = 13

	// MaxNameservers is the number of custom nameserver slots.
	MaxNameservers = 4

	// Forward modes accepted by ChangeURLForward.
	ForwardRedirect = "301_redirect"
	ForwardCloak    = "cloak"

	renewConfirmation = "Order Confirmation"
	nsConfirmation    = "Changes Saved Successfully!"
)

// ErrInvalidForwardMode is returned for a forward mode the portal does not offer.
var ErrInvalidForwardMode = errors.New("invalid url forward mode")

// NeedRenew reports whether d expires within the renewal window.
func (c *Client) NeedRenew(d domain.Domain) bool {
	return d.DaysUntilExpiry(c.now()) <= RenewWindowDays
}

// Renew orders a renewal of d for periodMonths (1 to 12). Nothing is
// submitted when d is outside the renewal window; Renew then reports false.
func (c *Client) Renew(ctx context.Context, d domain.Domain, periodMonths int) (bool, error) {
	if periodMonths < 1 || periodMonths > 12 {
		return false, fmt.Errorf("renew %s for %d months: %w", d.Name, periodMonths, domain.ErrInvalidPeriod)
	}
	if d.ID == "" {
		return false, fmt.Errorf("renew %s: %w", d.Name, domain.ErrDomainRequired)
	}
	if !c.NeedRenew(d) {
		return false, nil
	}

	pageURL := fmt.Sprintf("%s?a=renewdomain&domain=%s", c.endpoint("domains.php"), url.QueryEscape(d.ID))
	tok, err := c.token(ctx, pageURL)
	if err != nil {
		return false, fmt.Errorf("renew %s: %w", d.Name, err)
	}

	form := url.Values{
		"token":         {tok},
		"renewalid":     {d.ID},
		"paymentmethod": {"credit"},
	}
	form.Set(fmt.Sprintf("renewalperiod[%s]", d.ID), fmt.Sprintf("%dM", periodMonths))
	header := http.Header{"Referer": {pageURL}}
	resp, err := c.post(ctx, c.endpoint("domains.php")+"?submitrenewals=true", header, form)
	if err != nil {
		return false, fmt.Errorf("renew %s: %w", d.Name, err)
	}

	ok := strings.Contains(resp.Text(), renewConfirmation)
	c.log.WithFields(logrus.Fields{"domain": d.Name, "months": periodMonths, "ok": ok}).Info("domain renewal")
	return ok, nil
}

// SetNameservers switches d to custom nameservers. Unused slots are sent
// empty, which clears them.
func (c *Client) SetNameservers(ctx context.Context, d domain.Domain, nameservers []string) (bool, error) {
	if len(nameservers) > MaxNameservers {
		return false, fmt.Errorf("set nameservers of %s: %d given, at most %d: %w",
			d.Name, len(nameservers), MaxNameservers, domain.ErrTooManyNameservers)
	}
	if d.ID == "" {
		return false, fmt.Errorf("set nameservers of %s: %w", d.Name, domain.ErrDomainRequired)
	}

	tok, err := c.token(ctx, c.domainDetailsURL()+"&domain="+url.QueryEscape(d.ID))
	if err != nil {
		return false, fmt.Errorf("set nameservers of %s: %w", d.Name, err)
	}

	form := url.Values{
		"id":       {d.ID},
		"token":    {tok},
		"sub":      {"savens"},
		"nschoice": {"custom"},
	}
	for i := 0; i < MaxNameservers; i++ {
		value := ""
		if i < len(nameservers) {
			value = strings.TrimSpace(nameservers[i])
		}
		form.Set(fmt.Sprintf("ns%d", i+1), value)
	}

	submitURL := c.domainDetailsURL() + "&id=" + url.QueryEscape(d.ID)
	resp, err := c.post(ctx, submitURL, http.Header{"Referer": {submitURL}}, form)
	if err != nil {
		return false, fmt.Errorf("set nameservers of %s: %w", d.Name, err)
	}

	ok := strings.Contains(resp.Text(), nsConfirmation)
	c.log.WithFields(logrus.Fields{"domain": d.Name, "nameservers": nameservers, "ok": ok}).Info("nameservers set")
	return ok, nil
}

// CurrentURLForward returns the forward target and mode of a domain.
func (c *Client) CurrentURLForward(ctx context.Context, domainID string) (target, mode string, err error) {
	pageURL := fmt.Sprintf("%s&id=%s&modop=custom&a=urlforwarding", c.domainDetailsURL(), url.QueryEscape(domainID))
	tok, err := c.token(ctx, pageURL)
	if err != nil {
		return "", "", fmt.Errorf("url forward of %s: %w", domainID, err)
	}
	resp, err := c.post(ctx, pageURL, nil, url.Values{"token": {tok}})
	if err != nil {
		return "", "", fmt.Errorf("url forward of %s: %w", domainID, err)
	}
	target, mode, err = htmlparse.URLForward(resp.Text())
	if err != nil {
		return "", "", fmt.Errorf("url forward of %s: %w", domainID, err)
	}
	return target, mode, nil
}

// ChangeURLForward points a domain's URL forward at target using mode
// (ForwardRedirect or ForwardCloak).
func (c *Client) ChangeURLForward(ctx context.Context, domainID, target, mode string) error {
	if mode != ForwardRedirect && mode != ForwardCloak {
		return fmt.Errorf("%w: %q", ErrInvalidForwardMode, mode)
	}
	tok, err := c.token(ctx, c.domainDetailsURL())
	if err != nil {
		return fmt.Errorf("change url forward of %s: %w", domainID, err)
	}
	form := url.Values{
		"token": {tok},
		"id":    {domainID},
		"modop": {"custom"},
		"a":     {"urlforwarding"},
		"save":  {"true"},
		"url":   {target},
		"mode":  {mode},
	}
	if _, err := c.post(ctx, c.domainDetailsURL(), nil, form); err != nil {
		return fmt.Errorf("change url forward of %s: %w", domainID, err)
	}
	c.log.WithFields(logrus.Fields{"domain_id": domainID, "url": target, "mode": mode}).Info("url forward changed")
	return nil
}
