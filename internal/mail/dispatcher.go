package mail

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
	// Kind tags the message for logs and metrics, e.g. "otp" or "welcome".
	Kind string
}

// Sender delivers a message. Implementations may block on network I/O.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config controls queueing and per-message delivery limits.
type Config struct {
	BufferSize  int
	Workers     int
	SendTimeout time.Duration
}

// Dispatcher queues messages and delivers them on background workers so
// slow or failing mail never delays the request that triggered it.
type Dispatcher struct {
	cfg       Config
	sender    Sender
	logger    *zap.Logger
	ch        chan Message
	done      chan struct{}
	wg        sync.WaitGroup
	sent      atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewDispatcher(cfg Config, sender Sender, logger *zap.Logger) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		cfg:    cfg,
		sender: sender,
		logger: logger,
		ch:     make(chan Message, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.run()
	}

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case msg := <-d.ch:
			d.deliver(msg)
		case <-d.done:
			for {
				select {
				case msg := <-d.ch:
					d.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(msg Message) {
	if d.sender == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("mail sender panic: %v", r)
			}
		}()
		return d.sender.Send(ctx, msg)
	}()
	if err != nil {
		d.failed.Add(1)
		d.logger.Error("email delivery failed",
			zap.String("to", msg.To),
			zap.String("kind", msg.Kind),
			zap.Error(err),
		)
		return
	}

	d.sent.Add(1)
}

// Enqueue schedules msg for delivery without blocking. A full queue
// drops the message and counts it; Enqueue reports false when the message
// was not queued.
func (d *Dispatcher) Enqueue(msg Message) bool {
	if d == nil || d.closed.Load() {
		return false
	}

	select {
	case d.ch <- msg:
		return true
	case <-d.done:
		return false
	default:
		d.dropped.Add(1)
		d.logger.Warn("email queue full, message dropped",
			zap.String("to", msg.To),
			zap.String("kind", msg.Kind),
		)
		return false
	}
}

// Close stops accepting messages and waits for queued ones to be attempted.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) Sent() uint64 {
	if d == nil {
		return 0
	}
	return d.sent.Load()
}

func (d *Dispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
