package notification

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/otp-identity-api/internal/domain"
)

const sendTimeout = 30 * time.Second

// Mailer is the email channel.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// SMSSender is the SMS channel.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// Message is one set of freshly issued codes to deliver. An email is sent
// when EmailOTP is set and an SMS when MobileOTP is set.
type Message struct {
	Purpose   domain.Purpose
	Name      string
	Email     string
	Mobile    string
	MobileOTP *string
	EmailOTP  *string
	ExpireAt  time.Time
}

// Dispatcher delivers messages on a fixed pool of workers fed by a bounded
// queue. Delivery is best effort: a full queue, a closed dispatcher or a
// channel error is logged and the message dropped.
type Dispatcher struct {
	mailer Mailer
	sms    SMSSender
	queue  chan Message
	wg     sync.WaitGroup

	stateMu sync.RWMutex
	closed  bool
}

// NewDispatcher starts workers goroutines draining a queue of queueSize.
func NewDispatcher(mailer Mailer, sms SMSSender, workers, queueSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	d := &Dispatcher{
		mailer: mailer,
		sms:    sms,
		queue:  make(chan Message, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Dispatch enqueues msg without blocking and reports whether it was accepted.
func (d *Dispatcher) Dispatch(msg Message) bool {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	if d.closed {
		slog.Warn("dispatcher closed, dropping notification", "purpose", msg.Purpose)
		return false
	}
	select {
	case d.queue <- msg:
		return true
	default:
		slog.Warn("notification queue full, dropping notification", "purpose", msg.Purpose)
		return false
	}
}

// Close stops accepting messages and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.stateMu.Lock()
	if d.closed {
		d.stateMu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.stateMu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	defer func() {
		if rvr := recover(); rvr != nil {
			slog.Error("panic while delivering notification", "panic", rvr, "stack", string(debug.Stack()))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if msg.EmailOTP != nil && d.mailer != nil {
		subject, body := emailContent(msg)
		if err := d.mailer.SendEmail(msg.Email, subject, body); err != nil {
			slog.Error("failed to send otp email", "purpose", msg.Purpose, "err", err)
		}
	}
	if msg.MobileOTP != nil && d.sms != nil {
		if err := d.sms.SendSMS(ctx, msg.Mobile, smsContent(msg)); err != nil {
			slog.Error("failed to send otp sms", "purpose", msg.Purpose, "err", err)
		}
	}
}

func subjectFor(p domain.Purpose) string {
	switch p {
	case domain.PurposeLogin:
		return "Your login OTP"
	case domain.PurposePasswordReset:
		return "Reset your password"
	default:
		return "Verify your account"
	}
}

func emailContent(msg Message) (string, string) {
	body := fmt.Sprintf("Hello %s,\n\nYour OTP is %s. It expires at %s.\n\nIf you did not request this, you can ignore this email.\n",
		msg.Name, *msg.EmailOTP, msg.ExpireAt.UTC().Format(time.RFC1123))
	return subjectFor(msg.Purpose), body
}

func smsContent(msg Message) string {
	return fmt.Sprintf("%s is your OTP. It expires at %s. Do not share it with anyone.",
		*msg.MobileOTP, msg.ExpireAt.UTC().Format("15:04 MST"))
}
