package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/crownlab/crownlab/internal/config"
)

type smtpProvider struct {
	host     string
	port     int
	username string
	password string
	from     string
	log      *zap.Logger
}

// NewProvider returns the SMTP provider, or a no-op provider when no SMTP
// host is configured (local development).
func NewProvider(cfg config.Config, log *zap.Logger) Provider {
	host := strings.TrimSpace(cfg.Email.SMTPHost)
	if host == "" {
		return NewNoOpProvider(log)
	}
	return &smtpProvider{
		host:     host,
		port:     cfg.Email.SMTPPort,
		username: cfg.Email.SMTPUsername,
		password: cfg.Email.SMTPPassword,
		from:     cfg.Email.SMTPFrom,
		log:      log.Named("email.smtp"),
	}
}

func (p *smtpProvider) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("From: %s\r\n", p.from))
	builder.WriteString(fmt.Sprintf("To: %s\r\n", msg.To))
	builder.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	if msg.MessageID != "" {
		builder.WriteString(fmt.Sprintf("Message-ID: <%s@%s>\r\n", msg.MessageID, p.host))
	}
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	builder.WriteString("\r\n")
	builder.WriteString(msg.HTMLBody)

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	var auth smtp.Auth
	if p.username != "" {
		auth = smtp.PlainAuth("", p.username, p.password, p.host)
	}

	if err := smtp.SendMail(addr, auth, p.from, []string{msg.To}, []byte(builder.String())); err != nil {
		p.log.Warn("smtp send failed", zap.String("to", msg.To), zap.Error(err))
		return err
	}

	p.log.Info("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
