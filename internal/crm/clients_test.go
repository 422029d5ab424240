package crm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCredentials(t *testing.T) {
	t.Run("agency mode from key pair", func(t *testing.T) {
		t.Setenv("CRM_ACCESS_KEY", "access")
		t.Setenv("CRM_SECRET_KEY", "secret")
		t.Setenv("CRM_CLIENTS", "")

		creds, err := LoadCredentials()
		require.NoError(t, err)
		assert.Equal(t, ModeAgency, creds.Mode())

		// base64("access:secret")
		h, err := creds.AuthHeader("any-tenant")
		require.NoError(t, err)
		assert.Equal(t, "Basic YWNjZXNzOnNlY3JldA==", h)
	})

	t.Run("basic mode from client map", func(t *testing.T) {
		t.Setenv("CRM_ACCESS_KEY", "")
		t.Setenv("CRM_SECRET_KEY", "")
		t.Setenv("CRM_CLIENTS", `{"412986":{"name":"TMJ SoCal","auth":"dG9rZW4="}}`)

		creds, err := LoadCredentials()
		require.NoError(t, err)
		assert.Equal(t, ModeBasic, creds.Mode())
		assert.Equal(t, "TMJ SoCal", creds.Name("412986"))
	})

	t.Run("neither mode configured", func(t *testing.T) {
		t.Setenv("CRM_ACCESS_KEY", "")
		t.Setenv("CRM_SECRET_KEY", "")
		t.Setenv("CRM_CLIENTS", "")

		_, err := LoadCredentials()
		require.Error(t, err)
	})

	t.Run("bad json", func(t *testing.T) {
		t.Setenv("CRM_ACCESS_KEY", "")
		t.Setenv("CRM_SECRET_KEY", "")
		t.Setenv("CRM_CLIENTS", "{nope")

		_, err := LoadCredentials()
		require.Error(t, err)
	})
}

func TestAuthHeader(t *testing.T) {
	t.Run("prepends Basic prefix when missing", func(t *testing.T) {
		creds := &Credentials{mode: ModeBasic, clients: map[string]clientConfig{
			"T1": {Auth: "dG9rZW4="},
		}}
		h, err := creds.AuthHeader("T1")
		require.NoError(t, err)
		assert.Equal(t, "Basic dG9rZW4=", h)
	})

	t.Run("keeps existing Basic prefix", func(t *testing.T) {
		creds := &Credentials{mode: ModeBasic, clients: map[string]clientConfig{
			"T1": {Auth: "Basic dG9rZW4="},
		}}
		h, err := creds.AuthHeader("T1")
		require.NoError(t, err)
		assert.Equal(t, "Basic dG9rZW4=", h)
	})

	t.Run("unknown tenant in basic mode", func(t *testing.T) {
		creds := &Credentials{mode: ModeBasic, clients: map[string]clientConfig{}}
		_, err := creds.AuthHeader("T1")
		require.ErrorIs(t, err, ErrTenantNotConfigured)
	})

	t.Run("upsert makes a tenant resolvable", func(t *testing.T) {
		creds := &Credentials{mode: ModeBasic, clients: map[string]clientConfig{}}
		creds.Upsert("T1", "One", "dG9rZW4=")

		h, err := creds.AuthHeader("T1")
		require.NoError(t, err)
		assert.Equal(t, "Basic dG9rZW4=", h)
		assert.Equal(t, []string{"T1"}, creds.TenantIDs())
	})
}
