package dynamo

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/otp-identity-api/internal/config"
)

// tableSpec describes one table: its hash key, optional range key,
// hash-only GSIs (index name -> attribute) and optional TTL attribute.
type tableSpec struct {
	name    string
	hash    string
	rng     string
	indexes map[string]string
	ttl     string
}

func tableSpecs(tables config.DynamoTables) []tableSpec {
	return []tableSpec{
		{
			name: tables.Users,
			hash: fieldUserID,
			indexes: map[string]string{
				"email-index":     fieldEmail,
				"mobile_no-index": fieldMobileNo,
			},
		},
		{name: tables.UserUniques, hash: fieldUniqueKey},
		{
			name:    tables.Sessions,
			hash:    fieldSessionID,
			indexes: map[string]string{"user_id-index": fieldUserID},
			ttl:     "expires_at",
		},
		// expired records stay readable until ttl (expire_at + grace) so
		// they can be reported as expired rather than missing.
		{name: tables.VerificationCodes, hash: fieldUserID, ttl: "ttl"},
		{
			name:    tables.PasswordResets,
			hash:    fieldUserID,
			indexes: map[string]string{"token_hash-index": fieldTokenHash},
			ttl:     "ttl",
		},
		{name: tables.KYCDocuments, hash: fieldUserID, rng: fieldDocType},
	}
}

// Bootstrap creates every table and GSI the service needs if it does not
// exist yet. Existing tables are left as they are.
func Bootstrap(ctx context.Context, client *dynamodb.Client, tables config.DynamoTables) {
	for _, ts := range tableSpecs(tables) {
		createTable(ctx, client, ts.input())
		if ts.ttl != "" {
			enableTTL(ctx, client, ts.name, ts.ttl)
		}
	}
}

func (s tableSpec) input() *dynamodb.CreateTableInput {
	seen := map[string]bool{}
	var attrs []types.AttributeDefinition
	define := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		attrs = append(attrs, types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: types.ScalarAttributeTypeS,
		})
	}

	define(s.hash)
	keys := []types.KeySchemaElement{{AttributeName: aws.String(s.hash), KeyType: types.KeyTypeHash}}
	if s.rng != "" {
		define(s.rng)
		keys = append(keys, types.KeySchemaElement{AttributeName: aws.String(s.rng), KeyType: types.KeyTypeRange})
	}

	var gsis []types.GlobalSecondaryIndex
	for index, attr := range s.indexes {
		define(attr)
		gsis = append(gsis, types.GlobalSecondaryIndex{
			IndexName:  aws.String(index),
			KeySchema:  []types.KeySchemaElement{{AttributeName: aws.String(attr), KeyType: types.KeyTypeHash}},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}

	return &dynamodb.CreateTableInput{
		TableName:              aws.String(s.name),
		BillingMode:            types.BillingModePayPerRequest,
		AttributeDefinitions:   attrs,
		KeySchema:              keys,
		GlobalSecondaryIndexes: gsis,
	}
}

func createTable(ctx context.Context, client *dynamodb.Client, input *dynamodb.CreateTableInput) {
	_, err := client.CreateTable(ctx, input)
	var inUse *types.ResourceInUseException
	switch {
	case err == nil:
		slog.Info("created table", "table", aws.ToString(input.TableName))
	case errors.As(err, &inUse):
	default:
		slog.Warn("could not create table", "table", aws.ToString(input.TableName), "err", err)
	}
}

func enableTTL(ctx context.Context, client *dynamodb.Client, table, attr string) {
	_, err := client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(table),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			Enabled:       aws.Bool(true),
			AttributeName: aws.String(attr),
		},
	})
	if err != nil {
		slog.Warn("could not enable TTL", "table", table, "err", err)
	}
}
