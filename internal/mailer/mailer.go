package mailer

import (
	"fmt"
	"log"
	"net/smtp"
)

// Mailer sends outbound application email over SMTP.
type Mailer struct {
	host     string
	port     int
	user     string
	password string
	from     string
}

func New(host string, port int, user, password string) *Mailer {
	return &Mailer{host: host, port: port, user: user, password: password, from: user}
}

// SendPasswordReset mails a reset link to the user. It runs on its own
// goroutine and is neither awaited nor retried; a failure is only
// logged.
func (m *Mailer) SendPasswordReset(to, resetURL string) {
	go func() {
		subject := "Password Reset Request"
		body := fmt.Sprintf(
			"<p>You requested a password reset. Click <a href=%q>here</a> to reset your password.</p>",
			resetURL,
		)
		msg := []byte(
			"From: " + m.from + "\r\n" +
				"To: " + to + "\r\n" +
				"Subject: " + subject + "\r\n" +
				"MIME-Version: 1.0\r\n" +
				"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
				"\r\n" + body + "\r\n",
		)

		addr := fmt.Sprintf("%s:%d", m.host, m.port)
		auth := smtp.PlainAuth("", m.user, m.password, m.host)
		if err := smtp.SendMail(addr, auth, m.from, []string{to}, msg); err != nil {
			log.Printf("Error sending email: %v", err)
		}
	}()
}
