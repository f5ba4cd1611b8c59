package utils

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/storyvault/models"
)

type capturedMail struct {
	to  string
	msg string
}

func testMailConfig() MailConfig {
	return MailConfig{
		Host:     "smtp.example.com",
		Port:     587,
		From:     "noreply@example.com",
		FromName: "StoryVault",
		BaseURL:  "https://vault.example.com",
	}
}

func testPost() (*models.Post, *models.Author) {
	author := &models.Author{Email: "b@x.com", Name: "Bob"}
	post := &models.Post{Message: "hello <script>x</script>", EditToken: "edittok", DeleteToken: "deltok"}
	return post, author
}

func TestMailNotifier_SendsManagementLinks(t *testing.T) {
	var got []capturedMail
	n := NewMailNotifier(testMailConfig()).WithSender(func(_ context.Context, _ MailConfig, to string, msg []byte) error {
		got = append(got, capturedMail{to: to, msg: string(msg)})
		return nil
	})

	post, author := testPost()
	require.NoError(t, n.NotifyPostCreated(context.Background(), post, author))
	require.Len(t, got, 1)
	assert.Equal(t, "b@x.com", got[0].to)

	body := got[0].msg
	assert.Contains(t, body, "https://vault.example.com/post/edit/edittok")
	assert.Contains(t, body, "https://vault.example.com/post/delete/deltok")
	assert.Contains(t, body, "Hello, Bob!")
	assert.Contains(t, body, "Content-Type: text/html; charset=UTF-8")
	assert.NotContains(t, body, "<script>")
	assert.True(t, strings.Contains(body, "&lt;script&gt;"))
}

func TestMailNotifier_Failures(t *testing.T) {
	sendErr := errors.New("connection refused")
	tests := []struct {
		name   string
		cfg    func(*MailConfig)
		email  string
		sendFn SendFunc
	}{
		{"invalid recipient", nil, "not-an-email", nil},
		{"recipient with display name", nil, "Bob <b@x.com>", nil},
		{"missing host", func(c *MailConfig) { c.Host = "" }, "b@x.com", nil},
		{"missing sender", func(c *MailConfig) { c.From = "" }, "b@x.com", nil},
		{"transport error", nil, "b@x.com", func(context.Context, MailConfig, string, []byte) error { return sendErr }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testMailConfig()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			sent := false
			send := tt.sendFn
			if send == nil {
				send = func(context.Context, MailConfig, string, []byte) error {
					sent = true
					return nil
				}
			}
			n := NewMailNotifier(cfg).WithSender(send)
			post, author := testPost()
			author.Email = tt.email

			err := n.NotifyPostCreated(context.Background(), post, author)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotification)
			assert.False(t, sent)
		})
	}
}
