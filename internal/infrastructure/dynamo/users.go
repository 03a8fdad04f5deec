package dynamo

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/otp-identity-api/internal/config"
	"github.com/otp-identity-api/internal/domain"
)

// UserRepo provides typed DynamoDB operations for the users table and the
// user_uniques guard rows that keep email and mobile numbers unique.
type UserRepo struct {
	client            *dynamodb.Client
	tableName         string
	uniquesTable      string
	verificationTable string
}

func NewUserRepo(client *dynamodb.Client, tables config.DynamoTables) *UserRepo {
	return &UserRepo{
		client:            client,
		tableName:         tables.Users,
		uniquesTable:      tables.UserUniques,
		verificationTable: tables.VerificationCodes,
	}
}

func emailGuard(email string) string   { return "email#" + email }
func mobileGuard(mobile string) string { return "mobile#" + mobile }

// Create stores a new user together with its uniqueness guards and the first
// verification record in one transaction. A taken email or mobile number
// cancels the whole write and yields ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u *domain.User, rec *domain.VerificationRecord) error {
	userItem, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	recItem, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}

	guard := func(key string) types.TransactWriteItem {
		return types.TransactWriteItem{Put: &types.Put{
			TableName: aws.String(r.uniquesTable),
			Item: map[string]types.AttributeValue{
				fieldUniqueKey: &types.AttributeValueMemberS{Value: key},
				fieldUserID:    &types.AttributeValueMemberS{Value: u.UserID},
			},
			ConditionExpression: aws.String("attribute_not_exists(" + fieldUniqueKey + ")"),
		}}
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                userItem,
				ConditionExpression: aws.String("attribute_not_exists(" + fieldUserID + ")"),
			}},
			guard(emailGuard(u.Email)),
			guard(mobileGuard(u.MobileNo)),
			{Put: &types.Put{
				TableName: aws.String(r.verificationTable),
				Item:      recItem,
			}},
		},
	})
	if err != nil {
		return registrationError(err)
	}
	return nil
}

// Positions of the guard rows in the registration transaction.
const (
	emailGuardItem  = 1
	mobileGuardItem = 2
)

// registrationError names the guard that lost a concurrent registration.
func registrationError(err error) error {
	failed := failedConditions(err)
	switch {
	case failed[emailGuardItem]:
		return fmt.Errorf("create user: %w", domain.ErrEmailTaken)
	case failed[mobileGuardItem]:
		return fmt.Errorf("create user: %w", domain.ErrMobileTaken)
	case isConditionFailure(err):
		return fmt.Errorf("create user: %w", domain.ErrConflict)
	}
	return fmt.Errorf("create user: %w", err)
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldUserID, userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.queryGSI(ctx, "email-index", fieldEmail, email)
}

func (r *UserRepo) GetByMobile(ctx context.Context, mobile string) (*domain.User, error) {
	return r.queryGSI(ctx, "mobile_no-index", fieldMobileNo, mobile)
}

// ScanPage returns up to limit users holding the "user" role, optionally
// filtered by a substring of name, email or mobile number. DynamoDB applies
// Limit before the filter, so the scan continues until the page is full or
// the table is exhausted (bounded by maxScanRounds, after which a short page
// is returned with a cursor). cursor is a base64-encoded user_id; the returned
// cursor is empty when no items remain.
func (r *UserRepo) ScanPage(ctx context.Context, limit int32, cursor, search string) ([]domain.User, string, error) {
	filter := "#r = :role"
	names := map[string]string{"#r": fieldRole}
	values := map[string]types.AttributeValue{
		":role": &types.AttributeValueMemberS{Value: domain.RoleUser},
	}
	if search != "" {
		filter += " AND (contains(#n, :s) OR contains(#e, :s) OR contains(#m, :s))"
		names["#n"] = fieldName
		names["#e"] = fieldEmail
		names["#m"] = fieldMobileNo
		values[":s"] = &types.AttributeValueMemberS{Value: search}
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}
	if cursor != "" {
		userID, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = strKey(fieldUserID, userID)
	}
	return scanFilled(ctx, r.client, input, limit)
}

const maxScanRounds = 20

type scanAPI interface {
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// scanFilled repeats input from its start key, asking each round only for the
// items still missing, until limit users are collected or the scan ends.
func scanFilled(ctx context.Context, api scanAPI, input *dynamodb.ScanInput, limit int32) ([]domain.User, string, error) {
	users := []domain.User{}
	for round := 0; round < maxScanRounds; round++ {
		input.Limit = aws.Int32(limit - int32(len(users)))
		out, err := api.Scan(ctx, input)
		if err != nil {
			return nil, "", err
		}
		var page []domain.User
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, "", err
		}
		users = append(users, page...)

		last, ok := out.LastEvaluatedKey[fieldUserID].(*types.AttributeValueMemberS)
		if !ok {
			return users, "", nil
		}
		if int32(len(users)) >= limit || round == maxScanRounds-1 {
			return users, encodeCursor(last.Value), nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return users, "", nil
}

func encodeCursor(userID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(userID))
}

func decodeCursor(cursor string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *UserRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.User, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, err
	}
	return &u, nil
}
