package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/SomuG25/devcall/internal/booking"
	"github.com/SomuG25/devcall/internal/config"
)

// SMTPMailer sends the booking notice to the developer. When SMTP is not
// configured it logs the notice instead of sending, so local setups work
// without a mail server. Delivery failures are the caller's problem to
// swallow; this type just reports them.
type SMTPMailer struct {
	cfg config.SMTPConfig
	log *slog.Logger

	// send is swappable in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg config.SMTPConfig, log *slog.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, log: log, send: smtp.SendMail}
}

func (m *SMTPMailer) configured() bool {
	return m.cfg.Host != "" && m.cfg.Port > 0 && m.cfg.Username != "" && m.cfg.Password != ""
}

func (m *SMTPMailer) SendBookingNotice(ctx context.Context, n booking.BookingNotice) error {
	if !m.configured() {
		m.log.Info("mock booking notice",
			"to", n.DeveloperEmail,
			"booking_id", n.BookingID,
			"customer", n.CustomerName,
			"amount", formatAmount(n.AmountMinor, n.Currency),
		)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	from := fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.Username)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	msg := buildNoticeMessage(from, n)
	return m.send(addr, auth, m.cfg.Username, []string{n.DeveloperEmail}, msg)
}

func buildNoticeMessage(from string, n booking.BookingNotice) []byte {
	safe := func(s string) string {
		return strings.ReplaceAll(strings.TrimSpace(s), "\r\n", " ")
	}
	customer := safe(n.CustomerName)
	developer := safe(n.DeveloperName)
	title := safe(n.ProjectTitle)
	amount := formatAmount(n.AmountMinor, n.Currency)
	when := n.BookingTime.Format("Mon, 2 Jan 2006 at 3:04 PM MST")
	hours := float64(n.DurationMinutes) / 60

	subject := fmt.Sprintf("New DevCall booking from %s", customer)
	boundary := "----=_BOOKING_NOTICE_BOUNDARY"

	plainBody := fmt.Sprintf(
		"Hi %s,\n\n"+
			"%s booked a session with you.\n\n"+
			"Project: %s\n"+
			"When: %s\n"+
			"Duration: %.1f hours\n"+
			"Amount: %s\n\n"+
			"Booking reference: %s\n",
		developer, customer, title, when, hours, amount, n.BookingID,
	)

	htmlBody := fmt.Sprintf(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>New booking</title></head>
<body style="font-family:Arial, Helvetica, sans-serif; color:#222;">
  <h2>New booking</h2>
  <p>Hi %s,</p>
  <p><strong>%s</strong> booked a session with you.</p>
  <ul>
    <li>Project: %s</li>
    <li>When: %s</li>
    <li>Duration: %.1f hours</li>
    <li>Amount: <strong>%s</strong></li>
  </ul>
  <p>Booking reference: %s</p>
</body>
</html>`,
		developer, customer, title, when, hours, amount, n.BookingID,
	)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("From: %s\r\n", from))
	sb.WriteString(fmt.Sprintf("To: %s\r\n", n.DeveloperEmail))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary))

	sb.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	sb.WriteString(plainBody + "\r\n")

	sb.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	sb.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	sb.WriteString(htmlBody + "\r\n")

	sb.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	return []byte(sb.String())
}

func formatAmount(minor int64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	neg := ""
	if minor < 0 {
		neg = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%s %d.%02d", neg, currency, minor/100, minor%100)
}
