package awscfg

import (
	"context"
	"testing"

	"github.com/otp-identity-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_StaticCredentialsAndEndpoint(t *testing.T) {
	cfg := &config.Config{
		AWSEndpointURL: "http://localhost:4566",
		AWSAccessKeyID: "test",
		AWSSecretKey:   "secret",
	}
	awsCfg, err := Load(context.Background(), cfg, "ap-south-1")
	require.NoError(t, err)

	assert.Equal(t, "ap-south-1", awsCfg.Region)
	require.NotNil(t, awsCfg.BaseEndpoint)
	assert.Equal(t, "http://localhost:4566", *awsCfg.BaseEndpoint)

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test", creds.AccessKeyID)
}

func TestLoad_NoEndpointOverride(t *testing.T) {
	awsCfg, err := Load(context.Background(), &config.Config{AWSAccessKeyID: "k", AWSSecretKey: "s"}, "us-east-1")
	require.NoError(t, err)
	assert.Nil(t, awsCfg.BaseEndpoint)
}
