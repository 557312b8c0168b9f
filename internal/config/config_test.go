package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
start_operator: "#pp"
defines:
  QUALITY: high
namespaces:
  main: ./shaders
  lib: s3://shaders/lib
entry:
  namespace: main
  file: main.glsl
output: out.glsl
numbered: true
s3:
  endpoint: minio:9000
  access_key: ak
  secret_key: sk
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gpp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "//!", cfg.StartOperator)
	assert.Empty(t, cfg.Defines)
	assert.NotNil(t, cfg.Namespaces)
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML), filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "#pp", cfg.StartOperator)
	assert.Equal(t, map[string]string{"QUALITY": "high"}, cfg.Defines)
	assert.Equal(t, map[string]string{"main": "./shaders", "lib": "s3://shaders/lib"}, cfg.Namespaces)
	assert.Equal(t, Entry{Namespace: "main", File: "main.glsl"}, cfg.Entry)
	assert.Equal(t, "out.glsl", cfg.Output)
	assert.True(t, cfg.Numbered)
	assert.Equal(t, S3Config{Endpoint: "minio:9000", AccessKey: "ak", SecretKey: "sk"}, cfg.S3)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GPP_START_OPERATOR", "@@")
	t.Setenv("GPP_DEFINES", "DEBUG, LEVEL=3,")
	t.Setenv("GPP_S3_ENDPOINT", "s3.local:9000")
	t.Setenv("GPP_S3_USE_SSL", "true")

	cfg, err := Load(writeConfig(t, sampleYAML), filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "@@", cfg.StartOperator)
	assert.Equal(t, map[string]string{"QUALITY": "high", "DEBUG": "1", "LEVEL": "3"}, cfg.Defines)
	assert.Equal(t, "s3.local:9000", cfg.S3.Endpoint)
	assert.Equal(t, "ak", cfg.S3.AccessKey)
	assert.True(t, cfg.S3.UseSSL)
}

func TestLoadDotEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("GPP_OUTPUT=from-dotenv.glsl\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("GPP_OUTPUT") })

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv.glsl", cfg.Output)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "defines: [not, a, map]"))
	assert.Error(t, err)

	t.Setenv("GPP_S3_USE_SSL", "maybe")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		description string
		cfg         Config
		wantErr     bool
	}{
		{
			description: "valid",
			cfg:         Config{StartOperator: "//!", Namespaces: map[string]string{"main": "."}, Entry: Entry{"main", "a.glsl"}},
		},
		{
			description: "missing entry",
			cfg:         Config{StartOperator: "//!", Namespaces: map[string]string{"main": "."}},
			wantErr:     true,
		},
		{
			description: "unknown entry namespace",
			cfg:         Config{StartOperator: "//!", Namespaces: map[string]string{"main": "."}, Entry: Entry{"lib", "a.glsl"}},
			wantErr:     true,
		},
		{
			description: "operator with a space",
			cfg:         Config{StartOperator: "// !", Namespaces: map[string]string{"main": "."}, Entry: Entry{"main", "a.glsl"}},
			wantErr:     true,
		},
	}
	for _, tc := range testCases {
		err := tc.cfg.Validate()
		if tc.wantErr {
			assert.Error(t, err, tc.description)
		} else {
			assert.NoError(t, err, tc.description)
		}
	}
}

func TestParseEntry(t *testing.T) {
	entry, err := ParseEntry("main:main.glsl")
	require.NoError(t, err)
	assert.Equal(t, Entry{Namespace: "main", File: "main.glsl"}, entry)

	for _, bad := range []string{"main", ":main.glsl", "main:", ""} {
		_, err := ParseEntry(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseNamespace(t *testing.T) {
	name, location, err := ParseNamespace("lib=s3://shaders/lib")
	require.NoError(t, err)
	assert.Equal(t, "lib", name)
	assert.Equal(t, "s3://shaders/lib", location)

	_, _, err = ParseNamespace("lib")
	assert.Error(t, err)
}
