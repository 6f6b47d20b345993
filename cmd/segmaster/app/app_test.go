package app

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/segmaster/internal/config"
	"github.com/agentstation/segmaster/pkg/errors"
	"github.com/agentstation/segmaster/pkg/platform"
	"github.com/agentstation/segmaster/pkg/platform/memory"
	"github.com/agentstation/segmaster/pkg/segments"
	"github.com/agentstation/segmaster/pkg/versions"
)

const segmentsYAML = `segments:
  - segment_id: s1
    driver: Pg
    development_pid: dev1
    master_name: "m_#{version}"
  - segment_id: s2
    driver: vertica
    development_pid: dev1
    master_name: "v_#{version}"
    ads_output_stage_uri: s3://bucket/out
`

type secretsStub struct {
	value string
	calls int
}

func (s *secretsStub) GetSecretValue(
	_ context.Context,
	_ *secretsmanager.GetSecretValueInput,
	_ ...func(*secretsmanager.Options),
) (*secretsmanager.GetSecretValueOutput, error) {
	s.calls++
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(s.value)}, nil
}

type testEnv struct {
	app      *App
	fs       afero.Fs
	platform *memory.Platform
	out      *bytes.Buffer
}

func newTestEnv(t *testing.T, cfg *config.Config, opts ...Option) *testEnv {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in/segments.yaml", []byte(segmentsYAML), 0o644))

	p := memory.New()
	p.AddDomain("acme", "default")
	p.AddProject(platform.Project{PID: "dev1", Title: "Development"})

	out := &bytes.Buffer{}
	logger := zerolog.Nop()

	base := []Option{
		WithConfig(cfg),
		WithFs(fs),
		WithOutput(out),
		WithLogger(&logger),
		WithPlatform(p),
		WithDevelopment(p),
	}
	app, err := New("1.2.3", "abc123", "2026-01-01", "test", append(base, opts...)...)
	require.NoError(t, err)

	return &testEnv{app: app, fs: fs, platform: p, out: out}
}

func baseConfig() *config.Config {
	return &config.Config{
		Domain:       "acme",
		DataProduct:  "default",
		Environment:  "TESTING",
		Tokens:       map[string]string{"pg": "pg-token", "vertica": "v-token"},
		ManifestRoot: "/releases",
		LogFormat:    "json",
		LogOutput:    "discard",
	}
}

func TestApp_New(t *testing.T) {
	app, err := New("1.0.0", "abc123", "2024-01-01", "test")
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", app.Version())
	assert.Equal(t, "abc123", app.Commit())
	assert.Equal(t, "2024-01-01", app.Date())
	assert.Equal(t, "test", app.BuiltBy())
	assert.NotNil(t, app.Logger())
	assert.Nil(t, app.Config(), "config is loaded when a command runs")
	assert.NoError(t, app.Shutdown(context.Background()))
}

func TestReconcileCommand(t *testing.T) {
	env := newTestEnv(t, baseConfig())

	err := env.app.Execute(context.Background(), []string{"reconcile", "--segments", "/in/segments.yaml", "-o", "json", "--record"})
	require.NoError(t, err)

	var out segments.Output
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &out))
	require.Len(t, out.Results, 2)
	assert.Equal(t, "m_1", out.Results[0].Name)
	assert.Equal(t, segments.StatusCreated, out.Results[0].Status)
	assert.Equal(t, "vertica", out.Results[1].Driver)
	require.Len(t, out.Params.Synchronize, 2)
	assert.Equal(t, "s3://bucket/out", out.Params.Synchronize[1].ADSOutputStageURI)

	// --record publishes to the release manifest
	store := versions.NewManifest(env.fs, "/releases")
	latest, err := store.Latest(context.Background(), versions.Key{Domain: "acme", DataProduct: "default", SegmentID: "s2"})
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 1, latest.Version)
	assert.Equal(t, out.Results[1].MasterPID, latest.MasterProjectID)

	// A second run sees the recorded version
	env.out.Reset()
	require.NoError(t, env.app.Execute(context.Background(), []string{"reconcile", "-s", "/in/segments.yaml", "-o", "yaml"}))
	assert.Contains(t, env.out.String(), "name: m_2")
	assert.Contains(t, env.out.String(), "status: untouched")
}

func TestReconcileCommandListFile(t *testing.T) {
	env := newTestEnv(t, baseConfig())
	require.NoError(t, afero.WriteFile(env.fs, "/in/list.json",
		[]byte(`[{"segment_id":"s9","driver":"pg","development_pid":"dev1","master_name":"x_#{version}"}]`), 0o644))

	err := env.app.Execute(context.Background(), []string{"reconcile", "--segments", "/in/list.json", "-o", "table"})
	require.NoError(t, err)
	assert.Contains(t, env.out.String(), "x_1")
	assert.Contains(t, env.out.String(), "created")
}

func TestReconcileCommandFlagsOverrideConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.Domain = "elsewhere"
	env := newTestEnv(t, cfg)

	err := env.app.Execute(context.Background(), []string{"reconcile", "-s", "/in/segments.yaml", "--domain", "acme", "--environment", "PRODUCTION", "-o", "json"})
	require.NoError(t, err)

	var out segments.Output
	require.NoError(t, json.Unmarshal(env.out.Bytes(), &out))
	project, err := env.platform.Project(context.Background(), out.Results[0].MasterPID)
	require.NoError(t, err)
	assert.Equal(t, "PRODUCTION", project.Environment)
}

func TestReconcileCommandErrors(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Tokens = map[string]string{"pg": "pg-token"}
		env := newTestEnv(t, cfg)

		err := env.app.Execute(context.Background(), []string{"reconcile", "-s", "/in/segments.yaml"})
		require.Error(t, err)
		assert.True(t, errors.IsConfigError(err))
		assert.Empty(t, env.out.String(), "no partial output")
	})

	t.Run("missing file", func(t *testing.T) {
		env := newTestEnv(t, baseConfig())
		err := env.app.Execute(context.Background(), []string{"reconcile", "-s", "/in/nope.yaml"})
		var ioErr *errors.IOError
		assert.ErrorAs(t, err, &ioErr)
	})

	t.Run("bad format", func(t *testing.T) {
		env := newTestEnv(t, baseConfig())
		err := env.app.Execute(context.Background(), []string{"reconcile", "-s", "/in/segments.yaml", "-o", "xml"})
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("segments flag required", func(t *testing.T) {
		env := newTestEnv(t, baseConfig())
		assert.Error(t, env.app.Execute(context.Background(), []string{"reconcile"}))
	})
}

func TestReconcileCommandSecretsTokens(t *testing.T) {
	cfg := baseConfig()
	cfg.Tokens = nil
	cfg.TokensSecretID = "segmaster/tokens"
	secrets := &secretsStub{value: `{"PG":"pg-secret","vertica":"v-secret"}`}
	env := newTestEnv(t, cfg, WithSecrets(secrets))

	err := env.app.Execute(context.Background(), []string{"reconcile", "-s", "/in/segments.yaml", "-o", "json"})
	require.NoError(t, err)
	assert.Equal(t, 1, secrets.calls)
}

func TestPlatformURLRequired(t *testing.T) {
	app, err := New("1.0.0", "", "", "", WithConfig(baseConfig()))
	require.NoError(t, err)

	_, err = app.Segmaster(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestReconcileCommandRequiresDomain(t *testing.T) {
	cfg := baseConfig()
	cfg.Domain = ""
	cfg.TokensSecretID = "segmaster/tokens"
	secrets := &secretsStub{value: `{"pg":"pg-secret"}`}
	env := newTestEnv(t, cfg, WithSecrets(secrets))

	err := env.app.Execute(context.Background(), []string{"reconcile", "-s", "/in/segments.yaml"})
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
	assert.Contains(t, err.Error(), "no domain or organization")
	assert.Zero(t, secrets.calls, "collaborators are not built for an invalid target")
	assert.Equal(t, memory.Stats{}, env.platform.Stats())
}

func TestVersionCommand(t *testing.T) {
	env := newTestEnv(t, baseConfig())

	require.NoError(t, env.app.Execute(context.Background(), []string{"version"}))
	assert.Contains(t, env.out.String(), "segmaster version 1.2.3")
	assert.Contains(t, env.out.String(), "commit: abc123")
}
