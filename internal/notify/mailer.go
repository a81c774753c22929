package notify

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/config"
)

// ErrNotConfigured means the SMTP credentials are missing.
var ErrNotConfigured = eris.New("notify: EMAIL_USER and EMAIL_PASSWORD must be configured")

// ErrNoRecipient means no report recipient is configured.
var ErrNoRecipient = eris.New("notify: EMAIL_RECIPIENT must be configured")

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a sasl.Client, from string, to []string, r io.Reader) error

// Mailer sends the report over SMTP with the ledger attached.
type Mailer struct {
	cfg  config.EmailConfig
	send sendFunc
	now  func() time.Time
}

// NewMailer creates a Mailer. Port 465 uses implicit TLS; any other port
// upgrades with STARTTLS when the server offers it.
func NewMailer(cfg config.EmailConfig) *Mailer {
	send := smtp.SendMail
	if cfg.SMTPPort == 465 {
		send = smtp.SendMailTLS
	}
	return &Mailer{cfg: cfg, send: send, now: time.Now}
}

// Dispatch mails html to recipient with the file at filePath attached.
// Missing credentials return ErrNotConfigured without touching the network.
func (m *Mailer) Dispatch(ctx context.Context, filePath, recipient, subject, html string) error {
	if !m.cfg.MailConfigured() {
		return ErrNotConfigured
	}
	if recipient == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "notify: dispatch")
	}

	attachment, err := os.ReadFile(filePath)
	if err != nil {
		return eris.Wrap(err, "notify: read attachment")
	}

	msg, err := m.buildMessage(recipient, subject, html, filepath.Base(filePath), attachment)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(m.cfg.SMTPServer, strconv.Itoa(m.cfg.SMTPPort))
	auth := sasl.NewPlainClient("", m.cfg.User, m.cfg.Password)
	if err := m.send(addr, auth, m.cfg.User, []string{recipient}, bytes.NewReader(msg)); err != nil {
		return eris.Wrapf(err, "notify: send via %s", addr)
	}

	zap.L().Info("notify: email sent",
		zap.String("recipient", recipient),
		zap.String("attachment", filepath.Base(filePath)),
	)
	return nil
}

// buildMessage renders a multipart/mixed message: the HTML body followed by
// the attachment.
func (m *Mailer) buildMessage(recipient, subject, html, filename string, attachment []byte) ([]byte, error) {
	var h mail.Header
	h.SetDate(m.now())
	h.SetAddressList("From", []*mail.Address{{Address: m.cfg.User}})
	h.SetAddressList("To", []*mail.Address{{Address: recipient}})
	h.SetSubject(subject)

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, eris.Wrap(err, "notify: create message")
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, eris.Wrap(err, "notify: create body")
	}
	var th mail.InlineHeader
	th.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	w, err := tw.CreatePart(th)
	if err != nil {
		return nil, eris.Wrap(err, "notify: create html part")
	}
	if _, err := io.WriteString(w, html); err != nil {
		return nil, eris.Wrap(err, "notify: write html part")
	}
	if err := w.Close(); err != nil {
		return nil, eris.Wrap(err, "notify: close html part")
	}
	if err := tw.Close(); err != nil {
		return nil, eris.Wrap(err, "notify: close body")
	}

	var ah mail.AttachmentHeader
	ah.SetContentType(xlsxContentType, nil)
	ah.SetFilename(filename)
	ah.Set("Content-Transfer-Encoding", "base64")
	aw, err := mw.CreateAttachment(ah)
	if err != nil {
		return nil, eris.Wrap(err, "notify: create attachment")
	}
	if _, err := aw.Write(attachment); err != nil {
		return nil, eris.Wrap(err, "notify: write attachment")
	}
	if err := aw.Close(); err != nil {
		return nil, eris.Wrap(err, "notify: close attachment")
	}

	if err := mw.Close(); err != nil {
		return nil, eris.Wrap(err, "notify: close message")
	}
	return buf.Bytes(), nil
}
