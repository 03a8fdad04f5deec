package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/otp-identity-api/internal/config"
	"github.com/otp-identity-api/internal/domain"
)

// PasswordResetRepo stores exchange tokens minted by the forgot-password flow.
// PK: user_id, GSI: token_hash-index.
type PasswordResetRepo struct {
	client     *dynamodb.Client
	tableName  string
	usersTable string
}

func NewPasswordResetRepo(client *dynamodb.Client, tables config.DynamoTables) *PasswordResetRepo {
	return &PasswordResetRepo{client: client, tableName: tables.PasswordResets, usersTable: tables.Users}
}

func (r *PasswordResetRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.PasswordReset, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("token_hash-index"),
		KeyConditionExpression:    aws.String("#h = :h"),
		ExpressionAttributeNames:  map[string]string{"#h": fieldTokenHash},
		ExpressionAttributeValues: map[string]types.AttributeValue{":h": &types.AttributeValueMemberS{Value: tokenHash}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("password reset not found: %w", domain.ErrNotFound)
	}
	var pr domain.PasswordReset
	if err := attributevalue.UnmarshalMap(out.Items[0], &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// Redeem deletes the reset and stores the new password hash atomically.
// A reset that was already redeemed or replaced yields ErrNotFound.
func (r *PasswordResetRepo) Redeem(ctx context.Context, reset *domain.PasswordReset, passwordHash string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldPasswordHash: passwordHash,
		fieldUpdatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName:                aws.String(r.tableName),
				Key:                      strKey(fieldUserID, reset.UserID),
				ConditionExpression:      aws.String("#h = :h"),
				ExpressionAttributeNames: map[string]string{"#h": fieldTokenHash},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":h": &types.AttributeValueMemberS{Value: reset.TokenHash},
				},
			}},
			{Update: &types.Update{
				TableName:                 aws.String(r.usersTable),
				Key:                       strKey(fieldUserID, reset.UserID),
				UpdateExpression:          aws.String(ue.Expr),
				ConditionExpression:       aws.String("attribute_exists(" + fieldUserID + ")"),
				ExpressionAttributeNames:  ue.Names,
				ExpressionAttributeValues: ue.Values,
			}},
		},
	})
	if err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("redeem password reset: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("redeem password reset: %w", err)
	}
	return nil
}
