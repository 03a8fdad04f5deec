// Package verification issues and redeems the one-time codes that gate
// registration, OTP login and password recovery.
package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/otp-identity-api/internal/application/notification"
	"github.com/otp-identity-api/internal/domain"
	"github.com/otp-identity-api/internal/pkg/id"
)

// Lag between logical expiry and DynamoDB TTL deletion, so expired records
// are still reported as expired rather than missing.
const ttlGrace = 24 * time.Hour

// ErrNoPendingCode is returned when the user has no outstanding record for the flow.
var ErrNoPendingCode = domain.NewError(domain.ErrNotFound, "OTP not found. Please resend OTP.")

// Store is the persistence the workflow needs.
type Store interface {
	Put(ctx context.Context, rec *domain.VerificationRecord) error
	Get(ctx context.Context, userID string) (*domain.VerificationRecord, error)
	Consume(ctx context.Context, rec *domain.VerificationRecord, effects domain.ConsumeEffects) error
}

// Notifier hands issued codes to the asynchronous delivery pipeline.
type Notifier interface {
	Dispatch(msg notification.Message) bool
}

// CodeGenerator produces numeric codes of the requested length.
type CodeGenerator interface {
	Generate(n int) (string, error)
}

// Channels selects which codes an issuance produces.
type Channels struct {
	Mobile bool
	Email  bool
}

var (
	Both       = Channels{Mobile: true, Email: true}
	MobileOnly = Channels{Mobile: true}
)

// Submitted carries the codes presented by the caller. A nil field means
// the code was not supplied.
type Submitted struct {
	MobileOTP *string
	EmailOTP  *string
}

type Workflow struct {
	store    Store
	notifier Notifier
	gen      CodeGenerator
	length   int
	ttl      time.Duration
	now      func() time.Time
}

func NewWorkflow(store Store, notifier Notifier, gen CodeGenerator, length int, ttl time.Duration) *Workflow {
	return &Workflow{
		store:    store,
		notifier: notifier,
		gen:      gen,
		length:   length,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NewRecord draws fresh codes for the selected channels without persisting them.
// The expiry window starts now.
func (w *Workflow) NewRecord(userID string, purpose domain.Purpose, ch Channels) (*domain.VerificationRecord, error) {
	rec := &domain.VerificationRecord{
		UserID:  userID,
		Purpose: purpose,
		Nonce:   id.New(),
	}
	if ch.Mobile {
		code, err := w.gen.Generate(w.length)
		if err != nil {
			return nil, err
		}
		rec.MobileOTP = &code
	}
	if ch.Email {
		code, err := w.gen.Generate(w.length)
		if err != nil {
			return nil, err
		}
		rec.EmailOTP = &code
	}
	rec.ExpireAt = w.now().Add(w.ttl)
	rec.TTL = rec.ExpireAt.Add(ttlGrace).Unix()
	return rec, nil
}

// Deliver queues the codes of rec for u. Call it only once rec is stored.
func (w *Workflow) Deliver(u *domain.User, rec *domain.VerificationRecord) {
	w.notifier.Dispatch(notification.Message{
		Purpose:   rec.Purpose,
		Name:      u.Name,
		Email:     u.Email,
		Mobile:    u.MobileNo,
		MobileOTP: rec.MobileOTP,
		EmailOTP:  rec.EmailOTP,
		ExpireAt:  rec.ExpireAt,
	})
}

// Issue replaces any outstanding record of u with fresh codes and queues
// their delivery once the write has succeeded.
func (w *Workflow) Issue(ctx context.Context, u *domain.User, purpose domain.Purpose, ch Channels) (*domain.VerificationRecord, error) {
	rec, err := w.NewRecord(u.UserID, purpose, ch)
	if err != nil {
		return nil, fmt.Errorf("issue codes: %w", err)
	}
	if err := w.store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("store codes: %w", err)
	}
	w.Deliver(u, rec)
	return rec, nil
}

// Verify checks the submitted codes against the user's record for purpose
// and, when every required code matches, deletes the record and commits
// effects in the same atomic unit. Checks run in the order existence, expiry,
// mobile, email and stop at the first failure; a failed check leaves the
// record untouched.
func (w *Workflow) Verify(ctx context.Context, userID string, purpose domain.Purpose, sub Submitted, effects domain.ConsumeEffects) error {
	rec, err := w.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrNoPendingCode
		}
		return fmt.Errorf("load codes: %w", err)
	}
	if rec.Purpose != purpose {
		return ErrNoPendingCode
	}
	now := w.now()
	if rec.Expired(now) {
		return domain.ErrExpiredCode
	}
	if rec.MobileOTP != nil && (sub.MobileOTP == nil || *sub.MobileOTP != *rec.MobileOTP) {
		return domain.ErrInvalidMobileCode
	}
	if rec.EmailOTP != nil && (sub.EmailOTP == nil || *sub.EmailOTP != *rec.EmailOTP) {
		return domain.ErrInvalidEmailCode
	}

	if effects.VerifiedAt.IsZero() {
		effects.VerifiedAt = now
	}
	if err := w.store.Consume(ctx, rec, effects); err != nil {
		return err
	}
	return nil
}
