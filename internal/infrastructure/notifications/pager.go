// Package notifications provides the paging collaborator used to reach
// human responders when auto-escalation fires.
package notifications

import (
	"fmt"
	"os"
	"strings"

	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
	"github.com/SafeHarborHealth/safeharbor-go/pkg/config"
	"github.com/resendlabs/resend-go"
)

// Page is one notification handed to the paging channel. Delivery
// guarantees are the channel's concern; at-least-once is assumed.
type Page struct {
	TargetAudience string
	Title          string
	Message        string
	Priority       string // "critical" for auto-escalation
	Type           string // "crisis" for auto-escalation
}

// Pager defines the interface for delivering pages, allowing for mock
// implementations in tests.
type Pager interface {
	Send(page *Page) error
}

// ResendPager is the concrete implementation of the Pager using the Resend
// API to reach the on-call responder inbox.
type ResendPager struct {
	client        *resend.Client
	fromEmail     string
	fromName      string
	onCallAddress string
}

// NewResendPager creates a new pager client, returning the Pager interface.
func NewResendPager() (Pager, error) {
	key := os.Getenv("RESEND_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable is required")
	}
	if config.PagerOnCallAddress == "" {
		return nil, fmt.Errorf("PAGER_ONCALL_ADDRESS environment variable is required")
	}

	return &ResendPager{
		client:        resend.NewClient(key),
		fromEmail:     config.PagerFromAddress,
		fromName:      config.PagerFromName,
		onCallAddress: config.PagerOnCallAddress,
	}, nil
}

// LogPager is a no-delivery fallback used when no Resend credentials are
// configured. Pages land in the escalation log channel only.
type LogPager struct {
	logger *logging.ChanneledLogger
}

// NewLogPager creates the fallback pager.
func NewLogPager(logger *logging.ChanneledLogger) *LogPager {
	return &LogPager{logger: logger}
}

// Send records the page instead of delivering it.
func (p *LogPager) Send(page *Page) error {
	p.logger.Escalation().Warn("Page logged without delivery; no pager configured",
		"audience", page.TargetAudience,
		"title", page.Title,
		"priority", page.Priority)
	return nil
}

// Send delivers one page to the on-call inbox.
func (p *ResendPager) Send(page *Page) error {
	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(page.Priority), page.Title)

	html := fmt.Sprintf(
		"<p><strong>%s</strong></p><p>%s</p><p>audience: %s | type: %s | priority: %s</p>",
		page.Title, page.Message, page.TargetAudience, page.Type, page.Priority,
	)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", p.fromName, p.fromEmail),
		To:      []string{p.onCallAddress},
		Subject: subject,
		Html:    html,
	}

	if _, err := p.client.Emails.Send(params); err != nil {
		return fmt.Errorf("failed to deliver page via Resend: %w", err)
	}
	return nil
}
