package dynamo

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/otp-identity-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cancelled(codes ...string) error {
	reasons := make([]types.CancellationReason, len(codes))
	for i, c := range codes {
		reasons[i] = types.CancellationReason{Code: aws.String(c)}
	}
	return &types.TransactionCanceledException{CancellationReasons: reasons}
}

func TestRegistrationError_NamesLosingGuard(t *testing.T) {
	err := registrationError(cancelled("None", "ConditionalCheckFailed", "None", "None"))
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "The email has already been taken.", domain.Message(err))

	err = registrationError(cancelled("None", "None", "ConditionalCheckFailed", "None"))
	assert.ErrorIs(t, err, domain.ErrMobileTaken)
	assert.Equal(t, "The mobile has already been taken.", domain.Message(err))
}

func TestRegistrationError_UserRowCollision(t *testing.T) {
	err := registrationError(cancelled("ConditionalCheckFailed", "None", "None", "None"))
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.NotErrorIs(t, err, domain.ErrValidation)
}

func TestRegistrationError_PassesOtherFailuresThrough(t *testing.T) {
	boom := errors.New("throttled")
	err := registrationError(boom)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrConflict)
}

// fakeScanner serves pages of users and records the Limit of every call.
type fakeScanner struct {
	pages  [][]string // user ids returned per call; filtered-out rows are simply absent
	more   []bool     // whether a LastEvaluatedKey follows each page
	limits []int32
	starts []string
}

func (f *fakeScanner) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	call := len(f.limits)
	f.limits = append(f.limits, aws.ToInt32(in.Limit))
	start := ""
	if v, ok := in.ExclusiveStartKey[fieldUserID].(*types.AttributeValueMemberS); ok {
		start = v.Value
	}
	f.starts = append(f.starts, start)

	out := &dynamodb.ScanOutput{}
	for _, id := range f.pages[call] {
		out.Items = append(out.Items, map[string]types.AttributeValue{
			fieldUserID: &types.AttributeValueMemberS{Value: id},
		})
	}
	if f.more[call] {
		out.LastEvaluatedKey = strKey(fieldUserID, "after-"+string(rune('a'+call)))
	}
	return out, nil
}

func TestScanFilled_ContinuesPastFilteredPages(t *testing.T) {
	f := &fakeScanner{
		pages: [][]string{{}, {"u1"}, {"u2", "u3"}},
		more:  []bool{true, true, true},
	}
	users, next, err := scanFilled(context.Background(), f, &dynamodb.ScanInput{}, 3)
	require.NoError(t, err)

	require.Len(t, users, 3)
	assert.Equal(t, "u3", users[2].UserID)
	assert.Equal(t, []int32{3, 3, 2}, f.limits)
	assert.Equal(t, []string{"", "after-a", "after-b"}, f.starts)
	assert.Equal(t, encodeCursor("after-c"), next)
}

func TestScanFilled_ShortPageWhenTableExhausted(t *testing.T) {
	f := &fakeScanner{
		pages: [][]string{{"u1"}, {}},
		more:  []bool{true, false},
	}
	users, next, err := scanFilled(context.Background(), f, &dynamodb.ScanInput{}, 5)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Empty(t, next)
}

func TestScanFilled_StopsAfterMaxRoundsWithCursor(t *testing.T) {
	f := &fakeScanner{}
	for i := 0; i < maxScanRounds; i++ {
		f.pages = append(f.pages, nil)
		f.more = append(f.more, true)
	}
	users, next, err := scanFilled(context.Background(), f, &dynamodb.ScanInput{}, 10)
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.NotEmpty(t, next)
	assert.Len(t, f.limits, maxScanRounds)
}
