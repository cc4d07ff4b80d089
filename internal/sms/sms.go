// Package sms delivers one-time codes to phones. The real gateway is
// provisioned outside this service; LogSender stands in for it and is
// what local development runs with.
package sms

import (
	"context"

	"github.com/rs/zerolog"
)

// Sender dispatches a verification code to a phone number.
type Sender interface {
	Send(ctx context.Context, phone, code string) error
}

// LogSender writes the dispatch to the log instead of a gateway.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, phone, code string) error {
	zerolog.Ctx(ctx).Info().
		Str("phone", phone).
		Str("code", code).
		Msg("sending sms to phone")
	return nil
}
