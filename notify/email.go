package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// Email sends notifications over SMTP with STARTTLS.
type Email struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string

	// send is swapped out in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmail(host string, port int, username, password, from, to string) *Email {
	return &Email{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		To:       to,
		send:     smtp.SendMail,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Send(_ context.Context, title, message string, priority Priority) error {
	if e.Host == "" || e.Username == "" || e.Password == "" || e.From == "" || e.To == "" {
		return fmt.Errorf("email notifier is not fully configured")
	}

	subject := fmt.Sprintf("[%s] Trading Bot - %s", strings.ToUpper(string(priority)), title)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.From)
	fmt.Fprintf(&b, "To: %s\r\n", e.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Priority: %s\n", strings.ToUpper(string(priority)))
	fmt.Fprintf(&b, "Time: %s\n\n", time.Now().UTC().Format(time.RFC3339))
	b.WriteString(message)

	addr := fmt.Sprintf("%s:%d", e.Host, e.Port)
	auth := smtp.PlainAuth("", e.Username, e.Password, e.Host)
	if err := e.send(addr, auth, e.From, []string{e.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("send email via %s: %w", addr, err)
	}
	return nil
}
