package bodssecret

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
)

// ErrCredentialsNotFound indicates no credential pair is stored for a
// subscription. The health monitor treats this as fatal for that subscription.
var ErrCredentialsNotFound = errors.New("subscription credentials not found")

type Credentials struct {
	Username string
	Password string
}

// CredentialStore stores per-subscription username/password pairs as
// SecureString parameters under /{prefix}/subscription/{id}/.
type CredentialStore struct {
	api    ssmiface.SSMAPI
	prefix string
}

func NewCredentialStore(api ssmiface.SSMAPI, prefix string) *CredentialStore {
	return &CredentialStore{
		api:    api,
		prefix: prefix,
	}
}

func (s *CredentialStore) usernamePath(subscriptionID string) string {
	return fmt.Sprintf("/%v/subscription/%v/username", s.prefix, subscriptionID)
}

func (s *CredentialStore) passwordPath(subscriptionID string) string {
	return fmt.Sprintf("/%v/subscription/%v/password", s.prefix, subscriptionID)
}

func (s *CredentialStore) Get(ctx context.Context, subscriptionID string) (Credentials, error) {
	username, err := s.getParameter(ctx, s.usernamePath(subscriptionID))
	if err != nil {
		return Credentials{}, err
	}
	password, err := s.getParameter(ctx, s.passwordPath(subscriptionID))
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Username: username, Password: password}, nil
}

func (s *CredentialStore) Put(ctx context.Context, subscriptionID string, creds Credentials) error {
	if err := s.putParameter(ctx, s.usernamePath(subscriptionID), creds.Username); err != nil {
		return err
	}
	return s.putParameter(ctx, s.passwordPath(subscriptionID), creds.Password)
}

func (s *CredentialStore) Delete(ctx context.Context, subscriptionID string) error {
	if err := s.deleteParameter(ctx, s.usernamePath(subscriptionID)); err != nil {
		return err
	}
	return s.deleteParameter(ctx, s.passwordPath(subscriptionID))
}

func (s *CredentialStore) getParameter(ctx context.Context, name string) (string, error) {
	out, err := s.api.GetParameterWithContext(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == ssm.ErrCodeParameterNotFound {
			return "", fmt.Errorf("parameter %v: %w", name, ErrCredentialsNotFound)
		}
		return "", fmt.Errorf("failed to get parameter %v: %w", name, err)
	}
	return aws.StringValue(out.Parameter.Value), nil
}

func (s *CredentialStore) putParameter(ctx context.Context, name, value string) error {
	_, err := s.api.PutParameterWithContext(ctx, &ssm.PutParameterInput{
		Name:      aws.String(name),
		Value:     aws.String(value),
		Type:      aws.String(ssm.ParameterTypeSecureString),
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to put parameter %v: %w", name, err)
	}
	return nil
}

func (s *CredentialStore) deleteParameter(ctx context.Context, name string) error {
	_, err := s.api.DeleteParameterWithContext(ctx, &ssm.DeleteParameterInput{
		Name: aws.String(name),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == ssm.ErrCodeParameterNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete parameter %v: %w", name, err)
	}
	return nil
}
