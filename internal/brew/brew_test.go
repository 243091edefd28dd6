package brew

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubBrew(t *testing.T, fn func(args ...string) (string, string, error)) *[][]string {
	t.Helper()
	orig := runBrew
	t.Cleanup(func() { runBrew = orig })

	calls := &[][]string{}
	runBrew = func(_ context.Context, args ...string) (string, string, error) {
		*calls = append(*calls, args)
		return fn(args...)
	}
	return calls
}

func TestIsInstalled(t *testing.T) {
	calls := stubBrew(t, func(...string) (string, string, error) {
		return "wget 1.21.4\n", "", nil
	})

	client := NewClient()
	version, installed := client.IsInstalled(context.Background(), "wget", false)

	assert.True(t, installed)
	assert.Equal(t, "1.21.4", version)
	require.Len(t, *calls, 1)
	assert.Equal(t, []string{"list", "--versions", "wget"}, (*calls)[0])
}

func TestIsInstalledCask(t *testing.T) {
	calls := stubBrew(t, func(...string) (string, string, error) {
		return "firefox 133.0\n", "", nil
	})

	_, installed := NewClient().IsInstalled(context.Background(), "firefox", true)

	assert.True(t, installed)
	require.Len(t, *calls, 1)
	assert.Equal(t, []string{"list", "--cask", "--versions", "firefox"}, (*calls)[0])
}

func TestIsInstalledMissing(t *testing.T) {
	stubBrew(t, func(...string) (string, string, error) {
		return "", "Error: No such keg", errors.New("exit status 1")
	})

	version, installed := NewClient().IsInstalled(context.Background(), "nope", false)

	assert.False(t, installed)
	assert.Empty(t, version)
}

func TestInstall(t *testing.T) {
	calls := stubBrew(t, func(...string) (string, string, error) {
		return "==> Pouring wget\n", "", nil
	})

	out, err := NewClient().Install(context.Background(), "wget", false, false)

	require.NoError(t, err)
	assert.Contains(t, out, "Pouring")
	require.Len(t, *calls, 1)
	assert.Equal(t, []string{"install", "wget"}, (*calls)[0])
}

func TestInstallCaskForce(t *testing.T) {
	calls := stubBrew(t, func(...string) (string, string, error) {
		return "", "", nil
	})

	_, err := NewClient().Install(context.Background(), "firefox", true, true)

	require.NoError(t, err)
	require.Len(t, *calls, 1)
	assert.Equal(t, []string{"install", "--cask", "--force", "firefox"}, (*calls)[0])
}

func TestInstallFailure(t *testing.T) {
	stubBrew(t, func(...string) (string, string, error) {
		return "", "Error: No available formula with the name \"nope\"\n", errors.New("exit status 1")
	})

	_, err := NewClient().Install(context.Background(), "nope", false, false)

	require.Error(t, err)
	var brewErr *Error
	require.ErrorAs(t, err, &brewErr)
	assert.Equal(t, "install nope", brewErr.Op)
	assert.Contains(t, err.Error(), "No available formula")
}

func TestUninstall(t *testing.T) {
	calls := stubBrew(t, func(...string) (string, string, error) {
		return "Uninstalling wget\n", "", nil
	})

	_, err := NewClient().Uninstall(context.Background(), "wget", false)

	require.NoError(t, err)
	assert.Equal(t, []string{"uninstall", "wget"}, (*calls)[0])
}

func TestListInstalled(t *testing.T) {
	stubBrew(t, func(...string) (string, string, error) {
		return "git 2.47.1\njq 1.7.1\nwget 1.21.4 1.25.0\n\n", "", nil
	})

	packages, err := NewClient().ListInstalled(context.Background(), false)

	require.NoError(t, err)
	require.Len(t, packages, 3)
	assert.Equal(t, Package{Name: "git", Version: "2.47.1"}, packages[0])
	assert.Equal(t, Package{Name: "jq", Version: "1.7.1"}, packages[1])
	assert.Equal(t, "wget", packages[2].Name)
	assert.Equal(t, "1.21.4", packages[2].Version)
}

func TestCommandError(t *testing.T) {
	base := errors.New("exit status 1")

	assert.Equal(t, base, commandError(base, "  \n"))

	wrapped := commandError(base, "Error: boom\n")
	assert.ErrorIs(t, wrapped, base)
	assert.Equal(t, "exit status 1: Error: boom", wrapped.Error())
}

func TestErrorFormatting(t *testing.T) {
	err := opErr("upgrade wget", errors.New("exit status 1"))

	assert.EqualError(t, err, "brew: upgrade wget: exit status 1")

	var brewErr *Error
	require.ErrorAs(t, err, &brewErr)
	assert.Equal(t, "upgrade wget", brewErr.Op)
}
