package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers one message. Implementations must be safe for concurrent
// use; the verification flow treats delivery as fire-and-forget from the
// transaction's perspective.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if s.cfg.Host == "" {
		return errors.New("smtp host not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(m.HTML)

	addr := s.cfg.Host + ":" + s.cfg.Port
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	return smtp.SendMail(addr, auth, s.cfg.From, []string{m.To}, []byte(b.String()))
}

// VerificationEmail renders the one-time code message body.
func VerificationEmail(code string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Verification Code</title></head>
<body style="margin:0; padding:0; background:#f4f6f8; font-family: Arial, sans-serif;">
  <table width="100%%" cellpadding="0" cellspacing="0" style="background:#f4f6f8; padding:40px 0;">
    <tr><td align="center">
      <table width="500" cellpadding="0" cellspacing="0" style="background:white; border-radius:8px; padding:30px;">
        <tr><td align="center"><h2 style="margin:0; color:#1f2937;">Verify Your Vote</h2></td></tr>
        <tr><td align="center" style="padding:20px 0 10px 0; color:#4b5563;">
          You requested to vote in a poll. Use the verification code below:
        </td></tr>
        <tr><td align="center">
          <div style="display:inline-block; padding:15px 30px; border-radius:8px; background:#eff6ff;
            border:2px solid #2563eb; font-size:32px; font-weight:bold; letter-spacing:8px;
            color:#2563eb; margin:20px 0;">%s</div>
        </td></tr>
        <tr><td align="center" style="color:#374151; padding-top:10px;">
          This code expires in <strong>10 minutes</strong>.
        </td></tr>
        <tr><td align="center" style="color:#9ca3af; font-size:12px; padding-top:20px;">
          If you did not request this code, you can ignore this email.
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`, code)
}
