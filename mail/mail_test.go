package mail

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func otpMessage() goOTP.EmailMessage {
	return goOTP.EmailMessage{
		To:      "alice@example.com",
		Subject: "Your login code",
		Body:    "Your login code is 123456.\n",
		Kind:    "otp",
	}
}

func TestSMTPSenderRendersMessage(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{
		Host:        "smtp.example.com",
		Username:    "user",
		Password:    "pass",
		FromAddress: "no-reply@example.com",
		FromName:    "goOTP",
	})
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  []byte
		gotAuth smtp.Auth
	)
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, msg
		return nil
	}

	require.NoError(t, s.Send(context.Background(), otpMessage()))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "no-reply@example.com", gotFrom)
	assert.Equal(t, []string{"alice@example.com"}, gotTo)

	raw := string(gotMsg)
	assert.True(t, strings.HasPrefix(raw, "From: goOTP <no-reply@example.com>\r\n"), raw)
	assert.Contains(t, raw, "Subject: Your login code\r\n")
	assert.Contains(t, raw, "\r\n\r\nYour login code is 123456.\r\n")
}

func TestSMTPSenderRejectsHeaderInjection(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", FromAddress: "a@example.com"})
	require.NoError(t, err)
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be reached")
		return nil
	}

	msg := otpMessage()
	msg.Subject = "hi\r\nBcc: victim@example.com"
	assert.Error(t, s.Send(context.Background(), msg))
}

func TestSMTPSenderPropagatesFailureAndContext(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", FromAddress: "a@example.com"})
	require.NoError(t, err)

	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}
	assert.ErrorContains(t, s.Send(context.Background(), otpMessage()), "connection refused")

	block := make(chan struct{})
	defer close(block)
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		<-block
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Send(ctx, otpMessage()), context.DeadlineExceeded)
}

func TestNewSMTPSenderValidates(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{FromAddress: "a@example.com"})
	assert.Error(t, err)
}

func TestLogSenderKeepsBodyAtDebug(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSender(zap.New(core))

	require.NoError(t, s.Send(context.Background(), otpMessage()))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "email sent", entry.Message)
	for _, f := range entry.Context {
		assert.NotEqual(t, "body", f.Key)
	}
}

func TestWriterSender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriterSender(&buf).Send(context.Background(), otpMessage()))
	assert.Equal(t, "To: alice@example.com\nSubject: Your login code\n\nYour login code is 123456.\n\n", buf.String())
}
