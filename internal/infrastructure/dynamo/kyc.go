package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/otp-identity-api/internal/domain"
)

// KYCRepo stores identity documents. PK: user_id, SK: doc_type.
type KYCRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewKYCRepo(client *dynamodb.Client, tableName string) *KYCRepo {
	return &KYCRepo{client: client, tableName: tableName}
}

func (r *KYCRepo) Get(ctx context.Context, userID string, docType domain.KYCDocType) (*domain.KYCDocument, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey(fieldUserID, userID, fieldDocType, string(docType)),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("kyc document not found: %w", domain.ErrNotFound)
	}
	var d domain.KYCDocument
	if err := attributevalue.UnmarshalMap(out.Item, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Upsert writes the document, keeping the original created_at when one
// exists. It returns the image keys the document referenced before the write.
func (r *KYCRepo) Upsert(ctx context.Context, d *domain.KYCDocument) ([]string, error) {
	values, err := attributevalue.MarshalMap(map[string]interface{}{
		":num":  d.Number,
		":imgs": d.ImageKeys,
		":ts":   d.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal kyc document: %w", err)
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              compositeKey(fieldUserID, d.UserID, fieldDocType, string(d.DocType)),
		UpdateExpression: aws.String("SET #num = :num, #imgs = :imgs, #ua = :ts, #ca = if_not_exists(#ca, :ts)"),
		ExpressionAttributeNames: map[string]string{
			"#num":  "number",
			"#imgs": "image_keys",
			"#ua":   fieldUpdatedAt,
			"#ca":   "created_at",
		},
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueUpdatedOld,
	})
	if err != nil {
		return nil, err
	}
	var old struct {
		ImageKeys []string `dynamodbav:"image_keys"`
	}
	if err := attributevalue.UnmarshalMap(out.Attributes, &old); err != nil {
		return nil, err
	}
	return old.ImageKeys, nil
}
