package dynamo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/otp-identity-api/internal/domain"
)

// SessionRepo keeps one row per issued bearer token. PK: session_id,
// GSI: user_id-index. Rows expire through the expires_at TTL.
type SessionRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSessionRepo(client *dynamodb.Client, tableName string) *SessionRepo {
	return &SessionRepo{client: client, tableName: tableName}
}

func (r *SessionRepo) Put(ctx context.Context, s *domain.Session) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldSessionID, sessionID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	var s domain.Session
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Disable flips the enable flag of an existing session off.
func (r *SessionRepo) Disable(ctx context.Context, sessionID string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldEnable:    false,
		fieldUpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldSessionID, sessionID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(" + fieldSessionID + ")"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailure(err) {
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	return err
}

// DisableByUser disables every enabled session of the user, walking all
// pages of the user_id index. Every session is attempted; the first failure
// is returned.
func (r *SessionRepo) DisableByUser(ctx context.Context, userID string) error {
	pages := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-index"),
		KeyConditionExpression: aws.String("#uid = :uid"),
		FilterExpression:       aws.String("#en = :on"),
		ExpressionAttributeNames: map[string]string{
			"#uid": fieldUserID,
			"#en":  fieldEnable,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
			":on":  &types.AttributeValueMemberBOOL{Value: true},
		},
	})

	var firstErr error
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list sessions of %s: %w", userID, err)
		}
		for _, item := range page.Items {
			sid, ok := item[fieldSessionID].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			if err := r.Disable(ctx, sid.Value); err != nil {
				slog.Warn("failed to disable session", "session_id", sid.Value, "user_id", userID, "err", err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	return firstErr
}
