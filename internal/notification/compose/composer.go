// Package compose builds the human-facing payload for each transition kind.
// Exact wording is a presentation concern; the stored snapshot is the
// contract for later audit and display.
package compose

import (
	"fmt"
	"html"
	"strings"

	"github.com/k3a/html2text"

	"freshkeep/internal/notification/models"
	"freshkeep/pkg/email"
)

// Message is a composed notification payload ready for dispatch.
type Message struct {
	Title    string
	Body     string
	HTMLBody string
}

// Composer renders titles and bodies per transition kind.
type Composer struct{}

func New() *Composer { return &Composer{} }

// Compose builds the payload for a transition. recipientAddr feeds the
// greeting only; an empty address falls back to a generic one.
func (c *Composer) Compose(kind models.TransitionKind, snap models.ItemSnapshot, recipientAddr string) Message {
	title := c.title(kind, snap)
	lines := c.bodyLines(kind, snap)

	greeting := "Hi there,"
	if recipientAddr != "" {
		first, _ := email.DeriveNameFromEmail(recipientAddr)
		greeting = fmt.Sprintf("Hi %s,", first)
	}

	var htmlBody strings.Builder
	htmlBody.WriteString("<html><body>")
	htmlBody.WriteString("<p>" + html.EscapeString(greeting) + "</p>")
	for _, line := range lines {
		htmlBody.WriteString("<p>" + html.EscapeString(line) + "</p>")
	}
	htmlBody.WriteString("<p>— FreshKeep</p></body></html>")

	return Message{
		Title:    title,
		Body:     html2text.HTML2Text(htmlBody.String()),
		HTMLBody: htmlBody.String(),
	}
}

func (c *Composer) title(kind models.TransitionKind, snap models.ItemSnapshot) string {
	switch kind {
	case models.KindUpcomingExpiry:
		if snap.DaysUntilExpiry != nil && *snap.DaysUntilExpiry == 0 {
			return fmt.Sprintf("%s expires today", snap.Name)
		}
		if snap.DaysUntilExpiry != nil {
			return fmt.Sprintf("%s expires in %s", snap.Name, dayWord(*snap.DaysUntilExpiry))
		}
		return fmt.Sprintf("%s is expiring soon", snap.Name)
	case models.KindExpired:
		return fmt.Sprintf("%s has expired", snap.Name)
	case models.KindItemAdded:
		return fmt.Sprintf("%s added to your inventory", snap.Name)
	case models.KindItemRemoved:
		return fmt.Sprintf("%s removed from your inventory", snap.Name)
	}
	return snap.Name
}

func (c *Composer) bodyLines(kind models.TransitionKind, snap models.ItemSnapshot) []string {
	detail := fmt.Sprintf("%s (%s), %g %s, worth %.2f.",
		snap.Name, orUnknown(snap.Category), snap.Quantity, orUnknown(snap.Unit), snap.Amount)

	var lead string
	switch kind {
	case models.KindUpcomingExpiry:
		if snap.DaysUntilExpiry != nil && *snap.DaysUntilExpiry == 0 {
			lead = fmt.Sprintf("Your item %s expires today.", snap.Name)
		} else if snap.DaysUntilExpiry != nil {
			lead = fmt.Sprintf("Your item %s expires in %s.", snap.Name, dayWord(*snap.DaysUntilExpiry))
		} else {
			lead = fmt.Sprintf("Your item %s is expiring soon.", snap.Name)
		}
	case models.KindExpired:
		lead = fmt.Sprintf("Your item %s has passed its expiry date.", snap.Name)
	case models.KindItemAdded:
		lead = fmt.Sprintf("%s is now tracked in your inventory.", snap.Name)
	case models.KindItemRemoved:
		lead = fmt.Sprintf("%s was removed from your inventory.", snap.Name)
	}

	lines := []string{lead, detail}
	if snap.Expiry != nil {
		lines = append(lines, fmt.Sprintf("Expiry date: %s.", snap.Expiry.Format("2 January 2006")))
	}
	return lines
}

func dayWord(days int) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

func orUnknown(s string) string {
	if s == "" {
		return "uncategorized"
	}
	return s
}
