package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/elimu/core"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"

	sendAttempts = 3
	retryWait    = time.Second
)

type sendgridService struct {
	key        string
	host       string
	from       *sgmail.Email
	appName    string
	subjPrefix string
	api        *rest.Client
	retryWait  time.Duration
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) *sendgridService {
	return newSendgridService(conf, logger, sendgridHost, rest.DefaultClient)
}

func newSendgridService(conf *core.Config, logger core.Logger, host string, api *rest.Client) *sendgridService {
	from := conf.DefaultFromEmail()
	return &sendgridService{
		key:        conf.SendgridApiKey,
		host:       host,
		from:       sgmail.NewEmail(from.Name, from.Address),
		appName:    conf.AppName,
		subjPrefix: "[" + conf.AppName + "] ",
		api:        api,
		retryWait:  retryWait,
		logger:     logger,
	}
}

// SendMessages renders & sends every message in its own goroutine.
// Messages without recipients or content are dropped.
func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if err := msg.Render(); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email %q: %v", msg.TemplateName, err), err)
				return
			}
			if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
				return
			}
			if err := svc.send(*msg); err != nil {
				svc.logger.Error(fmt.Sprintf("sending email %q: %v", msg.Subject, err), err)
			}
		}()
	}
}

// prepare builds the SendGrid payload. Templated messages are categorized by template
// (e.g. order_confirmation, password_reset) for SendGrid's stats.
func (svc *sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgEmail(to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(sgEmail(cc))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(sgEmail(bcc))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddCategories(svc.appName)
	if msg.TemplateName != "" {
		m.AddCategories(msg.TemplateName)
	}

	// text/plain must come first
	if msg.TextContent != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	}
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	for _, at := range msg.Attachments {
		m.AddAttachment(&sgmail.Attachment{
			Content:     at.Content.String(),
			Type:        at.ContentType,
			Filename:    at.Filename,
			Disposition: "attachment",
		})
	}
	return m
}

// send posts msg to SendGrid, retrying network errors, rate limiting and server errors.
func (svc *sendgridService) send(msg core.EmailMessage) error {
	req := sendgrid.GetRequest(svc.key, sendgridEndpoint, svc.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(svc.prepare(msg))

	var err error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(time.Duration(attempt-1) * svc.retryWait)
		}

		var res *rest.Response
		res, err = svc.api.Send(req)
		switch {
		case err != nil:
			err = errors.Wrap(err, "posting to sendgrid")
		case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError:
			err = errors.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
		case res.StatusCode >= http.StatusBadRequest:
			return errors.Errorf("sendgrid rejected the email - status %d: %s", res.StatusCode, res.Body)
		default:
			return nil
		}
		svc.logger.Warn(fmt.Sprintf("sending email %q (attempt %d/%d): %v", msg.Subject, attempt, sendAttempts, err))
	}
	return err
}

func sgEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}
