package delivery

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"strconv"
	"strings"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"freshkeep/internal/notification/compose"
	"freshkeep/internal/platform/config"
)

// EmailChannel sends transactional email over SMTP via shoutrrr. The
// recipient varies per notification, so a sender is built per attempt from
// the configured credentials plus the target address.
type EmailChannel struct {
	cfg config.SMTPConfig
}

func NewEmailChannel(cfg config.SMTPConfig) *EmailChannel {
	return &EmailChannel{cfg: cfg}
}

func (c *EmailChannel) Name() string { return "email" }

// Deliver sends one message. Missing credentials, provider errors and
// timeouts all come back as failed outcomes with the cause in Detail.
func (c *EmailChannel) Deliver(ctx context.Context, recipient string, msg compose.Message) Outcome {
	if c.cfg.Host == "" || c.cfg.From == "" {
		return failed(c.Name(), "smtp not configured: host and from address are required")
	}
	if recipient == "" {
		return failed(c.Name(), "no recipient address")
	}

	sender, err := shoutrrr.CreateSender(c.serviceURL(recipient))
	if err != nil {
		return failed(c.Name(), fmt.Sprintf("create smtp sender: %v", err))
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	if c.cfg.Timeout > 0 {
		sender.Timeout = c.cfg.Timeout
	}

	done := make(chan []error, 1)
	go func() {
		done <- sender.Send(msg.HTMLBody, &stypes.Params{"subject": msg.Title})
	}()

	select {
	case <-ctx.Done():
		// The provider call keeps running in the background but the loop
		// must not wait for it.
		return failed(c.Name(), fmt.Sprintf("delivery timed out: %v", ctx.Err()))
	case errs := <-done:
		if joined := joinErrs(errs); joined != "" {
			return failed(c.Name(), joined)
		}
		return sent(c.Name(), fmt.Sprintf("accepted by %s", c.cfg.Host))
	}
}

func (c *EmailChannel) serviceURL(recipient string) string {
	query := url.Values{}
	query.Set("from", c.cfg.From)
	query.Set("to", recipient)
	query.Set("usehtml", "yes")

	u := url.URL{
		Scheme:   "smtp",
		Host:     c.cfg.Host + ":" + strconv.Itoa(c.cfg.Port),
		RawQuery: query.Encode(),
	}
	if c.cfg.Username != "" {
		u.User = url.UserPassword(c.cfg.Username, c.cfg.Password)
	}
	return u.String()
}

func joinErrs(errs []error) string {
	var parts []string
	for _, err := range errs {
		if err != nil {
			parts = append(parts, err.Error())
		}
	}
	return strings.Join(parts, "; ")
}
