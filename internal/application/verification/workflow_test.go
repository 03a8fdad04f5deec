package verification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/otp-identity-api/internal/application/notification"
	"github.com/otp-identity-api/internal/domain"
	"github.com/otp-identity-api/internal/pkg/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

// memStore keeps one record per user and honours the nonce condition on Consume.
type memStore struct {
	mu       sync.Mutex
	recs     map[string]domain.VerificationRecord
	consumed []domain.ConsumeEffects
	putErr   error
}

func newMemStore() *memStore { return &memStore{recs: map[string]domain.VerificationRecord{}} }

func (s *memStore) Put(_ context.Context, rec *domain.VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.recs[rec.UserID] = *rec
	return nil
}

func (s *memStore) Get(_ context.Context, userID string) (*domain.VerificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[userID]
	if !ok {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	return &rec, nil
}

func (s *memStore) Consume(_ context.Context, rec *domain.VerificationRecord, effects domain.ConsumeEffects) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.recs[rec.UserID]
	if !ok || cur.Nonce != rec.Nonce {
		return fmt.Errorf("consume verification: %w", domain.ErrCodeReissued)
	}
	delete(s.recs, rec.UserID)
	s.consumed = append(s.consumed, effects)
	return nil
}

func (s *memStore) has(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.recs[userID]
	return ok
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Dispatch(msg notification.Message) bool {
	return m.Called(msg).Bool(0)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

// --- helpers ---

func newWorkflow(t *testing.T, store Store) (*Workflow, *mockNotifier, *clock) {
	t.Helper()
	n := &mockNotifier{}
	n.On("Dispatch", mock.Anything).Return(true)
	c := &clock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	w := NewWorkflow(store, n, otp.NewGenerator(nil), otp.DefaultLength, 5*time.Minute)
	w.now = c.now
	return w, n, c
}

func testUser() *domain.User {
	return &domain.User{UserID: "u1", Name: "Asha", Email: "asha@example.com", MobileNo: "9876543210"}
}

func both(rec *domain.VerificationRecord) Submitted {
	return Submitted{MobileOTP: rec.MobileOTP, EmailOTP: rec.EmailOTP}
}

func ptr(s string) *string { return &s }

// --- Issue ---

func TestIssue_BothChannels(t *testing.T) {
	store := newMemStore()
	w, n, c := newWorkflow(t, store)

	rec, err := w.Issue(context.Background(), testUser(), domain.PurposeRegistration, Both)
	require.NoError(t, err)

	require.NotNil(t, rec.MobileOTP)
	require.NotNil(t, rec.EmailOTP)
	assert.Regexp(t, `^[0-9]{6}$`, *rec.MobileOTP)
	assert.Regexp(t, `^[0-9]{6}$`, *rec.EmailOTP)
	assert.Equal(t, c.t.Add(5*time.Minute), rec.ExpireAt)
	assert.Equal(t, rec.ExpireAt.Add(ttlGrace).Unix(), rec.TTL)
	assert.True(t, store.has("u1"))
	n.AssertCalled(t, "Dispatch", mock.MatchedBy(func(m notification.Message) bool {
		return m.Email == "asha@example.com" && m.Mobile == "9876543210" && *m.MobileOTP == *rec.MobileOTP
	}))
}

func TestIssue_MobileOnly(t *testing.T) {
	w, _, _ := newWorkflow(t, newMemStore())
	rec, err := w.Issue(context.Background(), testUser(), domain.PurposeLogin, MobileOnly)
	require.NoError(t, err)
	assert.NotNil(t, rec.MobileOTP)
	assert.Nil(t, rec.EmailOTP)
}

func TestIssue_StoreFailure_NoDispatch(t *testing.T) {
	store := newMemStore()
	store.putErr = errors.New("dynamo down")
	w, n, _ := newWorkflow(t, store)

	_, err := w.Issue(context.Background(), testUser(), domain.PurposeRegistration, Both)
	require.Error(t, err)
	n.AssertNotCalled(t, "Dispatch", mock.Anything)
}

func TestIssue_DispatchRejectionDoesNotFail(t *testing.T) {
	n := &mockNotifier{}
	n.On("Dispatch", mock.Anything).Return(false)
	w := NewWorkflow(newMemStore(), n, otp.NewGenerator(nil), 6, 5*time.Minute)

	_, err := w.Issue(context.Background(), testUser(), domain.PurposeRegistration, Both)
	assert.NoError(t, err)
}

func TestIssue_GeneratorFailure(t *testing.T) {
	n := &mockNotifier{}
	w := NewWorkflow(newMemStore(), n, otp.NewGenerator(bytes.NewReader(nil)), 6, 5*time.Minute)
	_, err := w.Issue(context.Background(), testUser(), domain.PurposeRegistration, Both)
	require.Error(t, err)
	n.AssertNotCalled(t, "Dispatch", mock.Anything)
}

func TestIssue_ReplacesPreviousRecord(t *testing.T) {
	store := newMemStore()
	w, _, c := newWorkflow(t, store)
	ctx := context.Background()

	first, err := w.Issue(ctx, testUser(), domain.PurposeRegistration, Both)
	require.NoError(t, err)
	c.advance(time.Minute)
	second, err := w.Issue(ctx, testUser(), domain.PurposeRegistration, Both)
	require.NoError(t, err)

	assert.Len(t, store.recs, 1)
	stored, _ := store.Get(ctx, "u1")
	assert.Equal(t, second.Nonce, stored.Nonce)
	assert.NotEqual(t, first.Nonce, second.Nonce)
	assert.Equal(t, c.t.Add(5*time.Minute), stored.ExpireAt)

	// Old codes are only accepted if they happen to equal the new ones.
	if *first.MobileOTP != *second.MobileOTP {
		err = w.Verify(ctx, "u1", domain.PurposeRegistration, both(first), domain.ConsumeEffects{})
		assert.ErrorIs(t, err, domain.ErrInvalidMobileCode)
	}
}

// --- Verify ---

func TestVerify_Success_DeletesRecordAndCommitsEffects(t *testing.T) {
	store := newMemStore()
	w, _, c := newWorkflow(t, store)
	ctx := context.Background()

	rec, err := w.Issue(ctx, testUser(), domain.PurposeRegistration, Both)
	require.NoError(t, err)

	err = w.Verify(ctx, "u1", domain.PurposeRegistration, both(rec), domain.ConsumeEffects{MarkEmailVerified: true, MarkMobileVerified: true})
	require.NoError(t, err)

	assert.False(t, store.has("u1"))
	require.Len(t, store.consumed, 1)
	assert.True(t, store.consumed[0].MarkEmailVerified)
	assert.True(t, store.consumed[0].MarkMobileVerified)
	assert.Equal(t, c.t, store.consumed[0].VerifiedAt)
}

func TestVerify_SecondAttemptIsNotFound(t *testing.T) {
	w, _, _ := newWorkflow(t, newMemStore())
	ctx := context.Background()

	rec, err := w.Issue(ctx, testUser(), domain.PurposeRegistration, Both)
	require.NoError(t, err)
	require.NoError(t, w.Verify(ctx, "u1", domain.PurposeRegistration, both(rec), domain.ConsumeEffects{}))

	err = w.Verify(ctx, "u1", domain.PurposeRegistration, both(rec), domain.ConsumeEffects{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerify_NoRecord(t *testing.T) {
	w, _, _ := newWorkflow(t, newMemStore())
	err := w.Verify(context.Background(), "u1", domain.PurposeLogin, Submitted{MobileOTP: ptr("123456")}, domain.ConsumeEffects{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "OTP not found. Please resend OTP.", domain.Message(err))
}

func TestVerify_ExpiredEvenWithCorrectCodes(t *testing.T) {
	store := newMemStore()
	w, _, c := newWorkflow(t, store)
	ctx := context.Background()

	rec, err := w.Issue(ctx, testUser(), domain.PurposeRegistration, Both)
	require.NoError(t, err)
	c.advance(5*time.Minute + time.Second)

	err = w.Verify(ctx, "u1", domain.PurposeRegistration, both(rec), domain.ConsumeEffects{})
	assert.ErrorIs(t, err, domain.ErrExpiredCode)

	stored, getErr := store.Get(ctx, "u1")
	require.NoError(t, getErr)
	assert.Equal(t, *rec.MobileOTP, *stored.MobileOTP)
	assert.Equal(t, *rec.EmailOTP, *stored.EmailOTP)
}

func TestVerify_AtExactExpiryStillValid(t *testing.T) {
	w, _, c := newWorkflow(t, newMemStore())
	ctx := context.Background()

	rec, err := w.Issue(ctx, testUser(), domain.PurposeRegistration, Both)
	require.NoError(t, err)
	c.advance(5 * time.Minute)

	assert.NoError(t, w.Verify(ctx, "u1", domain.PurposeRegistration, both(rec), domain.ConsumeEffects{}))
}

func TestVerify_MobileCheckedBeforeEmail(t *testing.T) {
	store := newMemStore()
	w, _, _ := newWorkflow(t, store)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, &domain.VerificationRecord{
		UserID: "u1", Purpose: domain.PurposeRegistration, Nonce: "n1",
		MobileOTP: ptr("111111"), EmailOTP: ptr("222222"),
		ExpireAt: time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC),
	}))

	err := w.Verify(ctx, "u1", domain.PurposeRegistration, Submitted{MobileOTP: ptr("000000"), EmailOTP: ptr("000000")}, domain.ConsumeEffects{})
	assert.ErrorIs(t, err, domain.ErrInvalidMobileCode)

	err = w.Verify(ctx, "u1", domain.PurposeRegistration, Submitted{MobileOTP: ptr("111111"), EmailOTP: ptr("000000")}, domain.ConsumeEffects{})
	assert.ErrorIs(t, err, domain.ErrInvalidEmailCode)

	assert.True(t, store.has("u1"), "failed attempts keep the record")
}

func TestVerify_ExactStringCompare(t *testing.T) {
	store := newMemStore()
	w, _, _ := newWorkflow(t, store)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, &domain.VerificationRecord{
		UserID: "u1", Purpose: domain.PurposeLogin, Nonce: "n1",
		MobileOTP: ptr("012345"), ExpireAt: time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC),
	}))

	err := w.Verify(ctx, "u1", domain.PurposeLogin, Submitted{MobileOTP: ptr("12345")}, domain.ConsumeEffects{})
	assert.ErrorIs(t, err, domain.ErrInvalidMobileCode)
	err = w.Verify(ctx, "u1", domain.PurposeLogin, Submitted{MobileOTP: ptr(" 012345")}, domain.ConsumeEffects{})
	assert.ErrorIs(t, err, domain.ErrInvalidMobileCode)
	err = w.Verify(ctx, "u1", domain.PurposeLogin, Submitted{}, domain.ConsumeEffects{})
	assert.ErrorIs(t, err, domain.ErrInvalidMobileCode)
	assert.NoError(t, w.Verify(ctx, "u1", domain.PurposeLogin, Submitted{MobileOTP: ptr("012345")}, domain.ConsumeEffects{}))
}

func TestVerify_OtherPurposeIsNotFound(t *testing.T) {
	store := newMemStore()
	w, _, _ := newWorkflow(t, store)
	ctx := context.Background()

	rec, err := w.Issue(ctx, testUser(), domain.PurposePasswordReset, Both)
	require.NoError(t, err)

	err = w.Verify(ctx, "u1", domain.PurposeLogin, both(rec), domain.ConsumeEffects{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.True(t, store.has("u1"))
}

// A resend that lands between the read and the delete must not be wiped
// out by the older verification.
type racingStore struct {
	*memStore
	onConsume func()
}

func (s *racingStore) Consume(ctx context.Context, rec *domain.VerificationRecord, effects domain.ConsumeEffects) error {
	s.onConsume()
	return s.memStore.Consume(ctx, rec, effects)
}

func TestVerify_ConcurrentResendWins(t *testing.T) {
	mem := newMemStore()
	store := &racingStore{memStore: mem}
	w, _, _ := newWorkflow(t, store)
	ctx := context.Background()

	rec, err := w.Issue(ctx, testUser(), domain.PurposeRegistration, Both)
	require.NoError(t, err)

	var resent *domain.VerificationRecord
	store.onConsume = func() {
		r, nerr := w.NewRecord("u1", domain.PurposeRegistration, Both)
		require.NoError(t, nerr)
		require.NoError(t, mem.Put(ctx, r))
		resent = r
	}

	err = w.Verify(ctx, "u1", domain.PurposeRegistration, both(rec), domain.ConsumeEffects{})
	assert.ErrorIs(t, err, domain.ErrCodeReissued)

	stored, getErr := mem.Get(ctx, "u1")
	require.NoError(t, getErr)
	assert.Equal(t, resent.Nonce, stored.Nonce)
}
