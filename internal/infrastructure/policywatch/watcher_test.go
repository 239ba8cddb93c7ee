package policywatch_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/volunteer-hub/internal/core/domain/navigation"
	"github.com/avatarctic/volunteer-hub/internal/core/domain/volunteer"
	"github.com/avatarctic/volunteer-hub/internal/infrastructure/policywatch"
)

const policyV1 = `
screens:
  Home:
    volunteer:
      requires: [user]
      next:
        - { screen: Gift, priority: 4 }
  Gift:
    volunteer:
      requires: [user]
`

const policyV2 = `
screens:
  Home:
    volunteer:
      requires: [user]
      next:
        - { screen: Gift, priority: 8 }
  Gift:
    volunteer:
      requires: [user]
`

func writePolicy(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func homePriority(w *policywatch.Watcher) int {
	c := w.Current().Candidates("Home", volunteer.RoleVolunteer)
	if len(c) == 0 {
		return 0
	}
	return c[0].Priority
}

func TestNew_MissingFile(t *testing.T) {
	_, err := policywatch.New(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestReload_KeepsPreviousOnInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	writePolicy(t, path, policyV1)

	w, err := policywatch.New(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, homePriority(w))

	writePolicy(t, path, "screens: [")
	assert.Error(t, w.Reload())
	assert.Equal(t, 4, homePriority(w))

	var notified int
	w.OnChange(func(_ *navigation.Policy) { notified++ })
	writePolicy(t, path, policyV2)
	require.NoError(t, w.Reload())
	assert.Equal(t, 8, homePriority(w))
	assert.Equal(t, 1, notified)
}

func TestStart_PicksUpFileChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	writePolicy(t, path, policyV1)

	w, err := policywatch.New(path, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	writePolicy(t, path, policyV2)
	assert.Eventually(t, func() bool { return homePriority(w) == 8 }, 5*time.Second, 50*time.Millisecond)
}

func TestStop_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	writePolicy(t, path, policyV1)

	w, err := policywatch.New(path, nil)
	require.NoError(t, err)
	w.Stop()
	w.Stop()
}
