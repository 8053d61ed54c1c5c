// Package mailer sends run reports by SMTP.
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/dustin/go-humanize"

	"github.com/bnema/siteback/internal/boundaries/out"
	"github.com/bnema/siteback/internal/domain"
)

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer implements the Notifier port. Site and SMTP settings come with
// each call.
type Mailer struct {
	send SendFunc
	now  func() time.Time
}

var _ out.Notifier = (*Mailer)(nil)

// Option configures the Mailer.
type Option func(*Mailer)

// WithSendFunc replaces smtp.SendMail.
func WithSendFunc(fn SendFunc) Option {
	return func(m *Mailer) {
		m.send = fn
	}
}

// New creates a Mailer.
func New(opts ...Option) *Mailer {
	m := &Mailer{
		send: smtp.SendMail,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Notify mails result when cfg is enabled and its policy allows the status.
func (m *Mailer) Notify(ctx context.Context, site string, cfg domain.NotifySettings, result domain.RunResult) error {
	if !cfg.Enabled {
		return nil
	}
	if !cfg.On.Allows(result.Status) {
		log := zerowrap.FromCtx(ctx)
		log.Debug().Str(zerowrap.FieldStatus, string(result.Status)).Msg("notification skipped by policy")
		return nil
	}
	return m.Send(ctx, site, cfg, result)
}

// Send mails result using cfg, ignoring the enabled flag and the policy.
func (m *Mailer) Send(ctx context.Context, site string, cfg domain.NotifySettings, result domain.RunResult) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "mailer",
		zerowrap.FieldAction:  "send",
	})
	log := zerowrap.FromCtx(ctx)

	recipients := splitAddresses(cfg.To)
	if len(recipients) == 0 {
		return fmt.Errorf("%w: notify.to is empty", domain.ErrConfiguration)
	}
	if cfg.SMTPHost == "" {
		return fmt.Errorf("%w: notify.smtp_host is empty", domain.ErrConfiguration)
	}

	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	addr := net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(port))

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPHost)
	}

	from := cfg.From
	if from == "" {
		from = "siteback@" + site
	}

	msg := m.compose(site, from, recipients, result)
	if err := m.send(addr, auth, from, recipients, msg); err != nil {
		return fmt.Errorf("%w: send notification: %v", domain.ErrNetwork, err)
	}

	log.Info().Strs("to", recipients).Str(zerowrap.FieldStatus, string(result.Status)).Msg("notification sent")
	return nil
}

// Subject returns the mail subject for result.
func Subject(site string, result domain.RunResult) string {
	return fmt.Sprintf("[%s] Backup %s - %s", site, result.Status, result.StartedAt.UTC().Format("2006-01-02 15:04:05"))
}

func (m *Mailer) compose(site, from string, to []string, result domain.RunResult) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + Subject(site, result) + "\r\n")
	b.WriteString("Date: " + m.now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")

	body := Body(site, result)
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

// Body renders the plain-text report.
func Body(site string, result domain.RunResult) string {
	var b strings.Builder
	b.WriteString("Backup Report\n")
	b.WriteString("=============\n\n")
	fmt.Fprintf(&b, "Site: %s\n", site)
	fmt.Fprintf(&b, "Status: %s\n", result.Status)
	fmt.Fprintf(&b, "Mode: %s\n", strings.ToUpper(string(result.Mode)))
	fmt.Fprintf(&b, "Run: %s\n", result.RunID)
	fmt.Fprintf(&b, "Started: %s\n", result.StartedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Duration: %.1fs\n\n", result.DurationSeconds)

	if len(result.Categories) > 0 {
		b.WriteString("Categories:\n")
		for _, c := range result.Categories {
			state := "ok"
			if c.Failed() {
				state = "FAILED"
			}
			size := ""
			if c.SizeBytes > 0 {
				size = " (" + humanize.Bytes(uint64(c.SizeBytes)) + ")"
			}
			fmt.Fprintf(&b, "  - %s: %s%s\n", c.Category, state, size)
		}
		b.WriteString("\n")
	}

	if len(result.UploadedKeys) > 0 {
		b.WriteString("Uploaded:\n")
		for _, k := range result.UploadedKeys {
			fmt.Fprintf(&b, "  %s\n", k)
		}
		b.WriteString("\n")
	}

	b.WriteString("Details:\n")
	b.WriteString(result.Message)
	b.WriteString("\n")
	return b.String()
}

func splitAddresses(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
