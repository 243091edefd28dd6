package plugin

import (
	"io"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCommand(t *testing.T, app *cobra.Command, name string) *cobra.Command {
	t.Helper()
	for _, c := range app.Commands() {
		if c.Name() == name {
			return c
		}
	}
	t.Fatalf("command %s not mounted on %s", name, app.Name())
	return nil
}

func TestRegisterMountsCommandGroup(t *testing.T) {
	app := newTestApp()
	registry := NewRegistry(app)

	p := &ExamplePlugin{}
	p.RegisterCommand(Command{Name: "hello", Help: "print a greeting"})
	p.RegisterCommand(Command{
		Name: "create-issue",
		Help: "create a tracking issue",
		Flags: func(flags *pflag.FlagSet) {
			flags.String("project", "", "project key")
		},
	})

	require.NoError(t, registry.Register(p))

	group := findCommand(t, app, "example")
	assert.Equal(t, "Commands for example plugin", group.Short)
	require.Len(t, group.Commands(), 2)

	created := findCommand(t, group, "create-issue")
	assert.Equal(t, "create a tracking issue", created.Short)
	assert.NotNil(t, created.Flags().Lookup("project"))

	hello := findCommand(t, group, "hello")
	assert.Nil(t, hello.Flags().Lookup("project"))
}

func TestRegisteredCommandRuns(t *testing.T) {
	app := newTestApp()
	app.SetOut(io.Discard)
	app.SetErr(io.Discard)
	registry := NewRegistry(app)

	ran := false
	p := &ExamplePlugin{}
	p.RegisterCommand(Command{
		Name: "hello",
		Help: "print a greeting",
		Run: func(_ *cobra.Command, _ []string) error {
			ran = true
			return nil
		},
	})
	require.NoError(t, registry.Register(p))

	app.SetArgs([]string{"example", "hello"})
	require.NoError(t, app.Execute())
	assert.True(t, ran)
}

func TestRegisterDuplicateFailsFast(t *testing.T) {
	registry := NewRegistry(newTestApp())

	first := &ExamplePlugin{}
	require.NoError(t, registry.Register(first))

	err := registry.Register(&ExamplePlugin{})
	require.Error(t, err)
	assert.True(t, IsDuplicatePlugin(err))

	var dupErr *DuplicatePluginError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "example", dupErr.Name)

	// The first registration stays retrievable.
	got, exists := registry.Plugin("example")
	require.True(t, exists)
	assert.Same(t, Plugin(first), got)
}

func TestRegisterNilPlugin(t *testing.T) {
	registry := NewRegistry(newTestApp())
	assert.Error(t, registry.Register(nil))
}

func TestPluginsSorted(t *testing.T) {
	registry := NewRegistry(newTestApp())
	require.NoError(t, registry.Register(&ResourceManagerPlugin{}))
	require.NoError(t, registry.Register(&ExamplePlugin{}))

	assert.Equal(t, []string{"example", "resource-manager"}, registry.Plugins())
}

func TestPluginLookupMiss(t *testing.T) {
	registry := NewRegistry(newTestApp())

	_, exists := registry.Plugin("ghost")
	assert.False(t, exists)
}

func TestDefaultBeforeInitialize(t *testing.T) {
	defaultMu.Lock()
	defaultRegistry = nil
	defaultMu.Unlock()

	_, err := Default()
	require.ErrorIs(t, err, ErrRegistryNotInitialized)

	// Still failing on a second call.
	_, err = Default()
	require.ErrorIs(t, err, ErrRegistryNotInitialized)
}

func TestInitializeBindsDefault(t *testing.T) {
	registry := Initialize(newTestApp())

	first, err := Default()
	require.NoError(t, err)
	second, err := Default()
	require.NoError(t, err)

	assert.Same(t, registry, first)
	assert.Same(t, first, second)
}
