package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender delivers alert e-mails through an SMTP relay via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendVoucherCreationFailedEmail(ctx context.Context, toEmail string, alert VoucherFailureAlert) error {
	subject, content, err := renderVoucherCreationFailed(alert)
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendVoucherMonitoringExpiredEmail(ctx context.Context, toEmail string, alert VoucherExpiryAlert) error {
	subject, content, err := renderVoucherMonitoringExpired(alert)
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func renderVoucherCreationFailed(alert VoucherFailureAlert) (string, string, error) {
	content, err := renderEmailTemplate("voucher_creation_failed.html", voucherCreationFailedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Factura no emitida",
			Heading: "No se pudo emitir la factura",
		},
		SaleID:     alert.SaleID,
		Reason:     alert.Reason,
		OccurredAt: formatTimestamp(alert.OccurredAt),
	})
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf(subjectVoucherCreationFailedFmt, alert.SaleID), content, nil
}

func renderVoucherMonitoringExpired(alert VoucherExpiryAlert) (string, string, error) {
	lastState := alert.LastState
	if lastState == "" {
		lastState = "desconocido"
	}
	content, err := renderEmailTemplate("voucher_monitoring_expired.html", voucherMonitoringExpiredEmailData{
		baseEmailData: baseEmailData{
			Title:   "Factura sin autorizar",
			Heading: "La factura no fue autorizada a tiempo",
		},
		SaleID:          alert.SaleID,
		RemoteVoucherID: alert.RemoteVoucherID,
		LastState:       lastState,
		OccurredAt:      formatTimestamp(alert.OccurredAt),
	})
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf(subjectVoucherMonitoringExpiredFmt, alert.SaleID), content, nil
}
