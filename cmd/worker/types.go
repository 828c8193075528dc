package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/imrishuroy/storefront-settlement/internal/notify"
)

// Email is a rendered message ready for delivery.
type Email struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Mailer delivers email. Delivery itself lives outside this service.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// logMailer writes emails to the log; used until a real provider is wired.
type logMailer struct {
	log *slog.Logger
}

func (m logMailer) Send(ctx context.Context, e Email) error {
	m.log.InfoContext(ctx, "email queued", "to", e.To, "subject", e.Subject)
	return nil
}

// paidEmail renders the payment confirmation for ev.
func paidEmail(from string, ev notify.PaidEvent) Email {
	var b strings.Builder
	fmt.Fprintf(&b, "Dobrý den %s,\n\n", ev.CustomerName)
	fmt.Fprintf(&b, "platba za objednávku %s byla přijata.\n\n", ev.OrderNumber)
	for _, it := range ev.Items {
		fmt.Fprintf(&b, "  %d× %s", it.Quantity, it.Name)
		if it.Size != "" {
			fmt.Fprintf(&b, " (%s)", it.Size)
		}
		fmt.Fprintf(&b, "  %d Kč\n", it.UnitPrice*int64(it.Quantity))
	}
	fmt.Fprintf(&b, "\nCelkem: %d Kč\n", ev.TotalPrice)

	return Email{
		From:    from,
		To:      ev.CustomerEmail,
		Subject: "Objednávka " + ev.OrderNumber + " je zaplacena",
		Body:    b.String(),
	}
}
