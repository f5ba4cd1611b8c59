package utils

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/cppla/storyvault/config"
	"github.com/cppla/storyvault/models"
)

// ErrNotification wraps every failure of MailNotifier.
var ErrNotification = errors.New("post notification failed")

// MailConfig holds SMTP and link settings for MailNotifier.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
	BaseURL  string
}

// MailConfigFrom extracts mail settings from the application config.
func MailConfigFrom(cfg config.AppConfig) MailConfig {
	return MailConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
		TLS:      cfg.SMTPTLS,
		BaseURL:  cfg.BaseURL,
	}
}

// SendFunc delivers a fully formatted message to one recipient.
type SendFunc func(ctx context.Context, cfg MailConfig, to string, msg []byte) error

// MailNotifier mails the management links of a new post to its author.
type MailNotifier struct {
	cfg  MailConfig
	send SendFunc
}

// NewMailNotifier returns a MailNotifier delivering over SMTP.
func NewMailNotifier(cfg MailConfig) *MailNotifier {
	return &MailNotifier{cfg: cfg, send: sendSMTP}
}

// WithSender replaces the transport, mainly for tests.
func (n *MailNotifier) WithSender(send SendFunc) *MailNotifier {
	return &MailNotifier{cfg: n.cfg, send: send}
}

const postCreatedSubject = "Your post has been published"

var postCreatedTemplate = template.Must(template.New("post-created").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.Subject}}</title></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
<h2>Hello, {{.Name}}!</h2>
<p>Your message has been published on <strong>StoryVault</strong>.</p>
<div style="background-color: #f8f9fa; border-left: 4px solid #007bff; padding: 15px; margin: 20px 0;">
<p style="margin: 0;"><em>{{.Message}}</em></p>
</div>
<h3>Manage your post</h3>
<p><strong>Edit</strong> (available for {{.EditHours}} hours):<br><a href="{{.EditURL}}">{{.EditURL}}</a></p>
<p><strong>Delete</strong> (available for {{.DeleteDays}} days):<br><a href="{{.DeleteURL}}">{{.DeleteURL}}</a></p>
<hr>
<p style="color: #6c757d; font-size: 12px;">This message was sent automatically. Please do not reply.</p>
</div>
</body>
</html>
`))

type postCreatedView struct {
	Subject    string
	Name       string
	Message    string
	EditURL    string
	DeleteURL  string
	EditHours  int
	DeleteDays int
}

// NotifyPostCreated validates recipient and sender, renders the mail and sends it.
func (n *MailNotifier) NotifyPostCreated(ctx context.Context, post *models.Post, author *models.Author) error {
	if post == nil || author == nil {
		return fmt.Errorf("%w: missing post or author", ErrNotification)
	}
	addr, err := mail.ParseAddress(author.Email)
	if err != nil || addr.Address != author.Email {
		return fmt.Errorf("%w: invalid recipient address", ErrNotification)
	}
	if n.cfg.Host == "" || n.cfg.From == "" {
		return fmt.Errorf("%w: sender is not configured", ErrNotification)
	}
	if _, err := mail.ParseAddress(n.cfg.From); err != nil {
		return fmt.Errorf("%w: invalid sender address: %v", ErrNotification, err)
	}

	links := ManagementLinks(n.cfg.BaseURL, post)
	var body bytes.Buffer
	err = postCreatedTemplate.Execute(&body, postCreatedView{
		Subject:    postCreatedSubject,
		Name:       author.Name,
		Message:    post.Message,
		EditURL:    links.Edit,
		DeleteURL:  links.Delete,
		EditHours:  12,
		DeleteDays: 14,
	})
	if err != nil {
		return fmt.Errorf("%w: render body: %v", ErrNotification, err)
	}

	msg := buildMessage(n.cfg, author.Email, postCreatedSubject, body.String())
	if err := n.send(ctx, n.cfg, author.Email, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrNotification, err)
	}
	return nil
}

func buildMessage(cfg MailConfig, to, subject, htmlBody string) []byte {
	fromName := cfg.FromName
	if fromName == "" {
		fromName = "StoryVault"
	}
	from := mail.Address{Name: fromName, Address: cfg.From}

	headers := [][2]string{
		{"From", from.String()},
		{"To", to},
		{"Subject", mime.BEncoding.Encode("UTF-8", subject)},
		{"Date", time.Now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}
	var msg strings.Builder
	for _, h := range headers {
		msg.WriteString(h[0] + ": " + h[1] + "\r\n")
	}
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)
	return []byte(msg.String())
}

func sendSMTP(ctx context.Context, cfg MailConfig, to string, msg []byte) error {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	// ensure we don't hang forever
	_ = conn.SetDeadline(time.Now().Add(15 * time.Second))

	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if cfg.TLS {
		ok, _ := c.Extension("STARTTLS")
		if !ok {
			return errors.New("server does not support STARTTLS")
		}
		if err := c.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
			return err
		}
	}
	if cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
			return err
		}
	}
	if err := c.Mail(cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return c.Quit()
}
