package mailer

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Message is one outbound email.
type Message struct {
	ToName    string
	ToAddress string
	Subject   string
	Text      string
	HTML      string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

const (
	sgHost     = "https://api.sendgrid.com"
	sgEndpoint = "/v3/mail/send"
)

// SendGrid delivers via the SendGrid v3 mail API.
type SendGrid struct {
	key  string
	from *sgmail.Email
}

// NewSendGrid creates a SendGrid mailer.
func NewSendGrid(apiKey, fromName, fromAddress string) *SendGrid {
	return &SendGrid{key: apiKey, from: sgmail.NewEmail(fromName, fromAddress)}
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToAddress))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}

	req := sendgrid.GetRequest(s.key, sgEndpoint, sgHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("mailer: send failed: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("mailer: send failed (%d): %s", res.StatusCode, res.Body)
	}
	return nil
}

// Console logs messages instead of sending them. Used in dev and wherever
// no SendGrid key is configured.
type Console struct{}

func (Console) Send(_ context.Context, msg Message) error {
	log.Printf("mailer: [console] to=%s subject=%q\n%s", msg.ToAddress, msg.Subject, msg.Text)
	return nil
}
