package dynamo

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// transactRetries bounds SDK retries. Verification and registration
// transactions on the same user can cancel each other with TransactionConflict.
const transactRetries = 5

// NewClient creates a DynamoDB client from the shared AWS configuration.
func NewClient(awsCfg aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		o.RetryMaxAttempts = transactRetries
	})
}
