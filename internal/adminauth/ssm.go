package adminauth

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/sitebuilder/internal/xerrors"
)

// ParameterGetter is the subset of *ssm.Client used to load the token.
type ParameterGetter interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// LoadTokenFromSSM reads the admin token from a (SecureString) parameter.
func LoadTokenFromSSM(ctx context.Context, client ParameterGetter, name string) (string, error) {
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get SSM parameter %s", name)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", xerrors.Newf("SSM parameter %s has no value", name)
	}

	token := strings.TrimSpace(*out.Parameter.Value)
	if token == "" {
		return "", xerrors.Newf("SSM parameter %s is empty", name)
	}
	return token, nil
}
