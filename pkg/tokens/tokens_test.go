package tokens

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/segmaster/pkg/errors"
)

type mockSecretsAPI struct {
	getSecretValueFunc func(ctx context.Context, params *secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error)
}

func (m *mockSecretsAPI) GetSecretValue(
	ctx context.Context,
	params *secretsmanager.GetSecretValueInput,
	_ ...func(*secretsmanager.Options),
) (*secretsmanager.GetSecretValueOutput, error) {
	return m.getSecretValueFunc(ctx, params)
}

func TestLookup(t *testing.T) {
	table := New(map[string]string{"PG": "pg-token", "vertica": "v-token", "empty": ""})

	token, err := table.Lookup("pg")
	require.NoError(t, err)
	assert.Equal(t, "pg-token", token)

	token, err = table.Lookup("Vertica")
	require.NoError(t, err)
	assert.Equal(t, "v-token", token)

	for _, driver := range []string{"redshift", "empty"} {
		_, err = table.Lookup(driver)
		assert.True(t, errors.IsConfigError(err), driver)
	}

	assert.Equal(t, []string{"pg", "vertica"}, table.Drivers())
}

func TestMerge(t *testing.T) {
	merged := Merge(
		Table{"pg": "a", "vertica": "b"},
		Table{"PG": "c", "vertica": ""},
	)
	assert.Equal(t, Table{"pg": "c", "vertica": "b"}, merged)
}

func TestFromSecretsManager(t *testing.T) {
	ctx := context.Background()

	t.Run("string secret", func(t *testing.T) {
		api := &mockSecretsAPI{getSecretValueFunc: func(_ context.Context, params *secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error) {
			assert.Equal(t, "segmaster/tokens", aws.ToString(params.SecretId))
			return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(`{"Pg":"pg-token","vertica":"v-token"}`)}, nil
		}}

		table, err := FromSecretsManager(ctx, api, "segmaster/tokens")
		require.NoError(t, err)
		assert.Equal(t, Table{"pg": "pg-token", "vertica": "v-token"}, table)
	})

	t.Run("binary secret", func(t *testing.T) {
		api := &mockSecretsAPI{getSecretValueFunc: func(context.Context, *secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error) {
			return &secretsmanager.GetSecretValueOutput{SecretBinary: []byte(`{"pg":"x"}`)}, nil
		}}

		table, err := FromSecretsManager(ctx, api, "id")
		require.NoError(t, err)
		assert.Equal(t, "x", table["pg"])
	})

	t.Run("not found", func(t *testing.T) {
		api := &mockSecretsAPI{getSecretValueFunc: func(context.Context, *secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error) {
			return nil, &types.ResourceNotFoundException{Message: aws.String("gone")}
		}}

		_, err := FromSecretsManager(ctx, api, "id")
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("malformed", func(t *testing.T) {
		api := &mockSecretsAPI{getSecretValueFunc: func(context.Context, *secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error) {
			return &secretsmanager.GetSecretValueOutput{SecretString: aws.String("not json")}, nil
		}}

		_, err := FromSecretsManager(ctx, api, "id")
		assert.True(t, errors.IsConfigError(err))
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := FromSecretsManager(ctx, nil, "")
		assert.True(t, errors.IsConfigError(err))
	})
}
