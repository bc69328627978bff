package access

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bantudesa/pkg/config"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestDefaultPolicy(t *testing.T) {
	authz, err := NewEnforcer(&config.Config{})
	require.NoError(t, err)

	admin := Actor{UserID: "1", Role: RoleAdmin}
	user := Actor{UserID: "2", Role: RoleUser}

	require.True(t, authz.Allow(admin, ResourceActivity, ActionDelete))
	require.True(t, authz.Allow(admin, ResourceDonation, ActionVerify))
	require.False(t, authz.Allow(user, ResourceDonation, ActionVerify))
	require.False(t, authz.Allow(user, ResourceActivity, ActionCreate))
	require.False(t, authz.Allow(Actor{Role: RoleAdmin}, ResourceActivity, ActionCreate))
}

func TestPolicyFromFiles(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.conf")
	policyPath := filepath.Join(dir, "policy.csv")
	require.NoError(t, os.WriteFile(modelPath, []byte(defaultModel), 0o600))
	require.NoError(t, os.WriteFile(policyPath, []byte("p, USER, donation, verify\n"), 0o600))

	cfg := &config.Config{}
	cfg.AccessControl.Model = modelPath
	cfg.AccessControl.Policy = policyPath

	authz, err := NewEnforcer(cfg)
	require.NoError(t, err)
	require.True(t, authz.Allow(Actor{UserID: "2", Role: RoleUser}, ResourceDonation, ActionVerify))
	require.False(t, authz.Allow(Actor{UserID: "1", Role: RoleAdmin}, ResourceDonation, ActionVerify))
}

func TestActorContext(t *testing.T) {
	require.False(t, FromContext(context.Background()).Authenticated())

	ctx := WithActor(context.Background(), Actor{UserID: "7", Role: ParseRole("admin")})
	got := FromContext(ctx)
	require.True(t, got.Authenticated())
	require.Equal(t, RoleAdmin, got.Role)
	require.Equal(t, RoleUser, ParseRole("donor"))
}
