package cerberus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// SSMAPI is the subset of the SSM client used for payloads.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMSource resolves ssm:/parameter/name references from Parameter Store.
// SecureString parameters are decrypted.
type SSMSource struct {
	client SSMAPI
}

func NewSSMSource(client SSMAPI) *SSMSource {
	return &SSMSource{client: client}
}

func (s *SSMSource) Resolve(ctx context.Context, ref string) ([]byte, error) {
	name, ok := strings.CutPrefix(ref, "ssm:")
	if !ok {
		return nil, ErrUnsupportedRef
	}

	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var nf *types.ParameterNotFound
		if errors.As(err, &nf) {
			return nil, fmt.Errorf("payload parameter %s not found: %w", name, err)
		}
		return nil, fmt.Errorf("failed to get payload parameter %s: %w", name, err)
	}
	if out.Parameter == nil {
		return nil, fmt.Errorf("payload parameter %s has no value", name)
	}
	return []byte(aws.ToString(out.Parameter.Value)), nil
}
