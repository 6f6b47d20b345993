// Package tokens holds the project authorization tokens used when
// provisioning master projects, keyed by database driver.
package tokens

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/agentstation/segmaster/pkg/errors"
	"github.com/agentstation/segmaster/pkg/segments"
)

// Table maps a lowercased driver name to a project authorization token.
type Table map[string]string

// New builds a table from m, normalizing driver names.
func New(m map[string]string) Table {
	t := make(Table, len(m))
	for driver, token := range m {
		t[segments.NormalizeDriver(driver)] = token
	}
	return t
}

// Lookup returns the token for driver.
func (t Table) Lookup(driver string) (string, error) {
	key := segments.NormalizeDriver(driver)
	token, ok := t[key]
	if !ok || token == "" {
		return "", errors.NewConfigError("tokens", "missing token for driver "+key, nil)
	}
	return token, nil
}

// Drivers returns the drivers with a token, sorted.
func (t Table) Drivers() []string {
	drivers := make([]string, 0, len(t))
	for driver, token := range t {
		if token != "" {
			drivers = append(drivers, driver)
		}
	}
	sort.Strings(drivers)
	return drivers
}

// Merge layers tables in order; later tables win.
func Merge(tables ...Table) Table {
	merged := Table{}
	for _, t := range tables {
		for driver, token := range t {
			if token != "" {
				merged[segments.NormalizeDriver(driver)] = token
			}
		}
	}
	return merged
}

// SecretsAPI is the subset of the Secrets Manager client used to load tokens.
type SecretsAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// FromSecretsManager loads a table from a secret whose string value is a
// JSON object of driver to token.
func FromSecretsManager(ctx context.Context, api SecretsAPI, secretID string) (Table, error) {
	if secretID == "" {
		return nil, errors.NewConfigError("tokens", "secret id is empty", nil)
	}

	out, err := api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		var nf *types.ResourceNotFoundException
		if errors.As(err, &nf) {
			return nil, errors.NewNotFoundError("secret", secretID)
		}
		return nil, errors.WrapResource("fetch", "secret", secretID, err)
	}

	var raw []byte
	switch {
	case out.SecretString != nil:
		raw = []byte(aws.ToString(out.SecretString))
	case out.SecretBinary != nil:
		raw = out.SecretBinary
	default:
		return nil, errors.NewConfigError("tokens", "secret "+secretID+" has no value", nil)
	}

	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.NewConfigError("tokens", "secret "+secretID+" is not a JSON object of driver tokens", err)
	}
	return New(m), nil
}
