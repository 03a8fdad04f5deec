package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/otp-identity-api/internal/config"
	"github.com/otp-identity-api/internal/domain"
)

// VerificationRepo manages the pending OTP record of each user.
// PK: user_id. There is at most one record per user.
type VerificationRepo struct {
	client      *dynamodb.Client
	tableName   string
	usersTable  string
	resetsTable string
}

func NewVerificationRepo(client *dynamodb.Client, tables config.DynamoTables) *VerificationRepo {
	return &VerificationRepo{
		client:      client,
		tableName:   tables.VerificationCodes,
		usersTable:  tables.Users,
		resetsTable: tables.PasswordResets,
	}
}

// Put replaces whatever record the user had with v.
func (r *VerificationRepo) Put(ctx context.Context, v *domain.VerificationRecord) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *VerificationRepo) Get(ctx context.Context, userID string) (*domain.VerificationRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldUserID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	var v domain.VerificationRecord
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Consume deletes rec and applies effects in one transaction. The delete is
// conditioned on the record's nonce, so a record replaced by a newer issuance
// since it was read is left alone and ErrCodeReissued is returned. The user
// row must still exist for verified timestamps to be written.
func (r *VerificationRepo) Consume(ctx context.Context, rec *domain.VerificationRecord, effects domain.ConsumeEffects) error {
	items, err := r.consumeItems(rec, effects)
	if err != nil {
		return err
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		return consumeError(err)
	}
	return nil
}

// Position of the record delete in the consume transaction; the user update,
// when present, follows it.
const (
	recordDeleteItem = 0
	userUpdateItem   = 1
)

func (r *VerificationRepo) consumeItems(rec *domain.VerificationRecord, effects domain.ConsumeEffects) ([]types.TransactWriteItem, error) {
	items := []types.TransactWriteItem{{
		Delete: &types.Delete{
			TableName:                aws.String(r.tableName),
			Key:                      strKey(fieldUserID, rec.UserID),
			ConditionExpression:      aws.String("#nc = :nc"),
			ExpressionAttributeNames: map[string]string{"#nc": fieldNonce},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":nc": &types.AttributeValueMemberS{Value: rec.Nonce},
			},
		},
	}}

	updates := map[string]interface{}{}
	if effects.MarkEmailVerified {
		updates[fieldEmailVerifiedAt] = effects.VerifiedAt
	}
	if effects.MarkMobileVerified {
		updates[fieldMobileVerifiedAt] = effects.VerifiedAt
	}
	if len(updates) > 0 {
		updates[fieldUpdatedAt] = effects.VerifiedAt
		ue, err := buildUpdateExpr(updates)
		if err != nil {
			return nil, err
		}
		items = append(items, types.TransactWriteItem{Update: &types.Update{
			TableName:                 aws.String(r.usersTable),
			Key:                       strKey(fieldUserID, rec.UserID),
			UpdateExpression:          aws.String(ue.Expr),
			ConditionExpression:       aws.String("attribute_exists(" + fieldUserID + ")"),
			ExpressionAttributeNames:  ue.Names,
			ExpressionAttributeValues: ue.Values,
		}})
	}

	if effects.PasswordReset != nil {
		item, err := attributevalue.MarshalMap(effects.PasswordReset)
		if err != nil {
			return nil, fmt.Errorf("marshal password reset: %w", err)
		}
		items = append(items, types.TransactWriteItem{Put: &types.Put{
			TableName: aws.String(r.resetsTable),
			Item:      item,
		}})
	}
	return items, nil
}

func consumeError(err error) error {
	failed := failedConditions(err)
	switch {
	case failed[recordDeleteItem]:
		return fmt.Errorf("consume verification: %w", domain.ErrCodeReissued)
	case failed[userUpdateItem]:
		return fmt.Errorf("consume verification: user: %w", domain.ErrNotFound)
	case isConditionFailure(err):
		return fmt.Errorf("consume verification: %w", domain.ErrCodeReissued)
	}
	return fmt.Errorf("consume verification: %w", err)
}
