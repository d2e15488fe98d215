package mail

import (
	"context"
	"fmt"
	"io"
	"sync"

	goOTP "github.com/MrEthical07/goOTP"
	"go.uber.org/zap"
)

// LogSender writes messages to a zap logger instead of delivering them.
// Bodies are logged at debug level only, since they carry login codes.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger.Named("mail")}
}

func (s *LogSender) Send(_ context.Context, msg goOTP.EmailMessage) error {
	s.logger.Info("email sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("kind", msg.Kind),
	)
	s.logger.Debug("email body", zap.String("to", msg.To), zap.String("body", msg.Body))
	return nil
}

// WriterSender renders each message as plain text to w.
type WriterSender struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSender(w io.Writer) *WriterSender {
	return &WriterSender{w: w}
}

func (s *WriterSender) Send(_ context.Context, msg goOTP.EmailMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := fmt.Fprintf(s.w, "To: %s\nSubject: %s\n\n%s\n", msg.To, msg.Subject, msg.Body)
	return err
}
