package mail

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// EmailSender delivers the ops notice when a payment settles. Best-effort:
// callers log failures and move on, a lost email never fails a settlement.
type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	To       string
}

func NewEmailSender(host string, port int, user, password, to string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		To:       to,
	}
}

func (s *EmailSender) SendPaymentReceived(leadID, leadName, orderNumber string, amountKopeks int64) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.User)
	m.SetHeader("To", s.To)
	m.SetHeader("Subject", fmt.Sprintf("Оплата получена: сделка %s", leadID))
	m.SetBody("text/plain", fmt.Sprintf(
		"Оплата по сделке %s (%s) подтверждена.\nЗаказ: %s\nСумма: %.2f руб.\n",
		leadID, leadName, orderNumber, float64(amountKopeks)/100,
	))

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("mail: send payment notice: %w", err)
	}
	return nil
}
