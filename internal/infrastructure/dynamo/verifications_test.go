package dynamo

import (
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/otp-identity-api/internal/config"
	"github.com/otp-identity-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumeItems_UserUpdateRequiresExistingUser(t *testing.T) {
	r := NewVerificationRepo(nil, testTables())
	rec := &domain.VerificationRecord{UserID: "u1", Nonce: "n1"}

	items, err := r.consumeItems(rec, domain.ConsumeEffects{
		MarkEmailVerified:  true,
		MarkMobileVerified: true,
		VerifiedAt:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.NotNil(t, items[recordDeleteItem].Delete)
	assert.Equal(t, "#nc = :nc", aws.ToString(items[recordDeleteItem].Delete.ConditionExpression))

	upd := items[userUpdateItem].Update
	require.NotNil(t, upd)
	assert.Equal(t, "users", aws.ToString(upd.TableName))
	assert.Equal(t, "attribute_exists(user_id)", aws.ToString(upd.ConditionExpression))
}

func TestConsumeItems_RecordOnlyWithoutEffects(t *testing.T) {
	r := NewVerificationRepo(nil, config.DynamoTables{VerificationCodes: "verification_codes"})
	items, err := r.consumeItems(&domain.VerificationRecord{UserID: "u1", Nonce: "n1"}, domain.ConsumeEffects{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.NotNil(t, items[0].Delete)
}

func TestConsumeItems_PasswordResetPut(t *testing.T) {
	r := NewVerificationRepo(nil, testTables())
	items, err := r.consumeItems(&domain.VerificationRecord{UserID: "u1", Nonce: "n1"}, domain.ConsumeEffects{
		PasswordReset: &domain.PasswordReset{UserID: "u1", TokenHash: "h"},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NotNil(t, items[1].Put)
	assert.Equal(t, "password_resets", aws.ToString(items[1].Put.TableName))
}

func TestConsumeError(t *testing.T) {
	err := consumeError(cancelled("ConditionalCheckFailed", "None"))
	assert.ErrorIs(t, err, domain.ErrCodeReissued)

	err = consumeError(cancelled("None", "ConditionalCheckFailed"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrCodeReissued)

	boom := errors.New("throttled")
	err = consumeError(boom)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrCodeReissued)
}
