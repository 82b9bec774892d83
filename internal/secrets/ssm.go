package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/smithy-go"
)

// ParameterGetter is the subset of the SSM client used here.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMSource reads the secret from an SSM Parameter Store SecureString.
type SSMSource struct {
	client ParameterGetter
	name   string
}

// NewSSMSource loads the default AWS config for region and returns a source
// for the named parameter.
func NewSSMSource(ctx context.Context, region, name string) (*SSMSource, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSSMSourceWithClient(ssm.NewFromConfig(cfg), name), nil
}

func NewSSMSourceWithClient(client ParameterGetter, name string) *SSMSource {
	return &SSMSource{client: client, name: name}
}

func (s *SSMSource) Secret(ctx context.Context) ([]byte, error) {
	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(s.name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, mapAWSError(s.name, err)
	}
	if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
		return nil, fmt.Errorf("ssm parameter %s is empty: %w", s.name, ErrSecretNotFound)
	}
	return []byte(aws.ToString(out.Parameter.Value)), nil
}

// mapAWSError converts AWS SDK errors to package sentinel errors.
func mapAWSError(name string, err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("ssm: %w", err)
	}

	switch apiErr.ErrorCode() {
	case "ParameterNotFound", "ParameterVersionNotFound":
		return fmt.Errorf("ssm parameter %s: %w", name, ErrSecretNotFound)
	case "AccessDeniedException":
		return fmt.Errorf("ssm parameter %s: %w", name, ErrAccessDenied)
	default:
		return fmt.Errorf("ssm %s: %w", apiErr.ErrorCode(), err)
	}
}

// Compile-time check: SSMSource implements Source.
var _ Source = (*SSMSource)(nil)
