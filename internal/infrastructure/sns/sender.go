package sns

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SMSSender sends SMS messages via AWS SNS.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type sender struct {
	client      *sns.Client
	countryCode string
}

// NewSender publishes through SNS. National numbers are prefixed with countryCode.
func NewSender(awsCfg aws.Config, countryCode string) SMSSender {
	return &sender{client: sns.NewFromConfig(awsCfg), countryCode: countryCode}
}

func (s *sender) SendSMS(ctx context.Context, to, message string) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(E164(s.countryCode, to)),
		Message:     aws.String(message),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
		},
	})
	return err
}

// E164 prefixes a national number with countryCode unless it already
// carries a leading "+".
func E164(countryCode, number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "+") {
		return number
	}
	return countryCode + strings.TrimLeft(number, "0")
}
