package core

import (
	"bytes"
	"net/mail"
)

type (
	Attachment struct {
		Content     *bytes.Buffer
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

		TextContent string
		HTMLContent string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// Render prepares the message contents for sending.
func (msg *EmailMessage) Render() error {
	if msg.TextContent == "" {
		msg.TextContent = msg.BodyStr
	}
	return nil
}

func (msg *EmailMessage) HasRecipients() bool {
	return len(msg.To) > 0 || len(msg.Cc) > 0 || len(msg.Bcc) > 0
}

func (msg *EmailMessage) HasContent() bool {
	return msg.BodyStr != "" || msg.TextContent != "" || msg.HTMLContent != ""
}

func (msg *EmailMessage) HasAttachments() bool {
	return len(msg.Attachments) > 0
}
