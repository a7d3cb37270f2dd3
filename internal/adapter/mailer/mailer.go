package mailer

import (
	"github.com/wheelmarket/listing-service/internal/config"
	"gopkg.in/gomail.v2"
)

// Mailer notifies sellers about listing events over SMTP.
type Mailer struct {
	cfg *config.SMTPConfig
}

func NewMailer(cfg *config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) SendListingPublishedEmail(toEmail, listingTitle string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.Email)
	msg.SetHeader("To", toEmail)
	msg.SetHeader("Subject", "Your listing is live")
	msg.SetBody("text/plain", "Your listing '"+listingTitle+"' has been published and is now visible to buyers.")

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Email, m.cfg.Password)
	return d.DialAndSend(msg)
}
