package relay

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/khbm0110/JUUUU/internal/config"
)

const (
	smtpProvider = "smtp"
	smtpTLSPort  = 465
	senderName   = "Cabinet Hassar Site"
)

// Mail is one outgoing message.
type Mail struct {
	Addr string
	Auth smtp.Auth
	From string
	To   []string
	Body []byte
}

// SendFunc delivers a Mail.
type SendFunc func(ctx context.Context, m Mail) error

// SMTPRelay emails each submission as an HTML list.
type SMTPRelay struct {
	cfg  config.SMTPConfig
	send SendFunc
}

// SMTPOption configures an SMTPRelay.
type SMTPOption func(*SMTPRelay)

// WithSendFunc replaces the network delivery, mainly for tests.
func WithSendFunc(fn SendFunc) SMTPOption {
	return func(r *SMTPRelay) {
		if fn != nil {
			r.send = fn
		}
	}
}

// NewSMTPRelay builds the relay. Port 465 uses implicit TLS, other ports
// negotiate STARTTLS.
func NewSMTPRelay(cfg config.SMTPConfig, opts ...SMTPOption) *SMTPRelay {
	if cfg.Port == 0 {
		cfg.Port = smtpTLSPort
	}
	if cfg.To == "" {
		cfg.To = cfg.Username
	}
	r := &SMTPRelay{cfg: cfg, send: dialAndSend}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Send implements Relay.
func (r *SMTPRelay) Send(ctx context.Context, sub Submission) (Result, error) {
	if r.cfg.Host == "" || r.cfg.Username == "" || r.cfg.To == "" {
		return Result{Provider: smtpProvider}, fmt.Errorf("%w: smtp host or credentials", ErrNotConfigured)
	}
	body, err := renderMail(sub)
	if err != nil {
		return Result{Provider: smtpProvider}, err
	}
	subject := subjectFor(sub.FormType)

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", senderName), r.cfg.Username)
	fmt.Fprintf(&msg, "To: %s\r\n", r.cfg.To)
	if sub.Email != "" && !strings.ContainsAny(sub.Email, "\r\n") {
		fmt.Fprintf(&msg, "Reply-To: %s\r\n", sub.Email)
	}
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	msg.Write(body)

	mail := Mail{
		Addr: net.JoinHostPort(r.cfg.Host, strconv.Itoa(r.cfg.Port)),
		Auth: smtp.PlainAuth("", r.cfg.Username, r.cfg.Password, r.cfg.Host),
		From: r.cfg.Username,
		To:   []string{r.cfg.To},
		Body: msg.Bytes(),
	}
	if err := r.send(ctx, mail); err != nil {
		return Result{Provider: smtpProvider}, fmt.Errorf("relay: smtp: %w", err)
	}
	return Result{Provider: smtpProvider, Message: "Request sent successfully!"}, nil
}

func subjectFor(ft FormType) string {
	if ft == FormAppointment {
		return "Nouvelle demande de rappel"
	}
	return "Nouveau message de contact"
}

var mailTemplate = template.Must(template.New("mail").Parse(`<h3>{{.Heading}} :</h3>
<ul>
  <li><strong>Nom :</strong> {{.Name}}</li>
  <li><strong>Email :</strong> {{.Email}}</li>
  {{- if .Phone}}
  <li><strong>Téléphone :</strong> {{.Phone}}</li>
  {{- end}}
  {{- if .Preferred}}
  <li><strong>Date souhaitée :</strong> {{.Preferred}}</li>
  {{- end}}
  <li><strong>Sujet :</strong> {{.Message}}</li>
</ul>
`))

func renderMail(sub Submission) ([]byte, error) {
	message := sub.Message
	if message == "" {
		message = "Non spécifié"
	}
	var buf bytes.Buffer
	err := mailTemplate.Execute(&buf, map[string]string{
		"Heading":   subjectFor(sub.FormType),
		"Name":      sub.Name,
		"Email":     sub.Email,
		"Phone":     sub.Phone,
		"Preferred": sub.PreferredDateTime,
		"Message":   message,
	})
	if err != nil {
		return nil, fmt.Errorf("relay: render mail: %w", err)
	}
	return buf.Bytes(), nil
}

func dialAndSend(ctx context.Context, m Mail) error {
	host, port, err := net.SplitHostPort(m.Addr)
	if err != nil {
		return err
	}
	dialer := &net.Dialer{Timeout: defaultTimeout}
	var conn net.Conn
	if port == strconv.Itoa(smtpTLSPort) {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: host}}).DialContext(ctx, "tcp", m.Addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", m.Addr)
	}
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if m.Auth != nil {
		if err := client.Auth(m.Auth); err != nil {
			return err
		}
	}
	if err := client.Mail(m.From); err != nil {
		return err
	}
	for _, to := range m.To {
		if err := client.Rcpt(to); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(m.Body); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
