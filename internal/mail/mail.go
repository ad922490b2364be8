// Package mail delivers transactional email through an HTTP delivery API,
// with a log-only sender for development.
package mail

import (
	"context"
	"fmt"
	"time"
)

// Message is a single outbound email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Sender delivers email messages.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}

// VerificationMessage builds the mailbox-verification email carrying a
// one-time code.
func VerificationMessage(appName, to, name, code string, ttl time.Duration) *Message {
	return &Message{
		To:      to,
		Subject: fmt.Sprintf("%s: verify your email", appName),
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Your %s verification code is <b>%s</b>. It expires in %d minutes.</p>"+
				"<p>If you did not sign up, you can ignore this email.</p>",
			name, appName, code, int(ttl.Minutes()),
		),
	}
}

// LoginCodeMessage builds the login second-factor email carrying a one-time code.
func LoginCodeMessage(appName, to, name, code string, ttl time.Duration) *Message {
	return &Message{
		To:      to,
		Subject: fmt.Sprintf("%s: your login code", appName),
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Your %s login code is <b>%s</b>. It expires in %d minutes.</p>"+
				"<p>If this wasn't you, change your password now.</p>",
			name, appName, code, int(ttl.Minutes()),
		),
	}
}
