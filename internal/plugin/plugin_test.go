package plugin

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ResourceManagerPlugin struct{ Base }

type ExamplePlugin struct{ Base }

type HTTPStatusPlugin struct{ Base }

type renamedPlugin struct{ Base }

func (p *renamedPlugin) Name() string { return "custom-name" }

func TestDeriveName(t *testing.T) {
	tests := []struct {
		plugin Plugin
		want   string
	}{
		{&ResourceManagerPlugin{}, "resource-manager"},
		{&ExamplePlugin{}, "example"},
		{&HTTPStatusPlugin{}, "http-status"},
		{&renamedPlugin{}, "custom-name"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveName(tt.plugin))
	}
}

func TestDeriveNameNil(t *testing.T) {
	assert.Empty(t, DeriveName(nil))
}

func TestKebabCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ResourceManager", "resource-manager"},
		{"Example", "example"},
		{"HTTPStatus", "http-status"},
		{"My_Tool", "my-tool"},
		{"v2Sync", "v2-sync"},
		{"already-lower", "already-lower"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, kebabCase(tt.in), "input %q", tt.in)
	}
}

func TestBaseDefaults(t *testing.T) {
	var b Base

	assert.Empty(t, b.Name())
	assert.NoError(t, b.Setup())
	assert.Empty(t, b.Commands())
}

func TestRegisterCommandKeepsOrder(t *testing.T) {
	var b Base
	b.RegisterCommand(Command{Name: "list", Help: "list things"})
	b.RegisterCommand(Command{Name: "get", Help: "get a thing"})

	commands := b.Commands()
	require.Len(t, commands, 2)
	assert.Equal(t, "list", commands[0].Name)
	assert.Equal(t, "get", commands[1].Name)
}

func TestRegisterCommandReplacesByName(t *testing.T) {
	var b Base
	b.RegisterCommand(Command{Name: "list", Help: "first"})
	b.RegisterCommand(Command{Name: "get", Help: "get a thing"})
	b.RegisterCommand(Command{Name: "list", Help: "second"})

	commands := b.Commands()
	require.Len(t, commands, 2)
	assert.Equal(t, "list", commands[0].Name)
	assert.Equal(t, "second", commands[0].Help)
}

func TestCommandsReturnsCopy(t *testing.T) {
	var b Base
	b.RegisterCommand(Command{Name: "list"})

	commands := b.Commands()
	commands[0].Name = "mutated"

	assert.Equal(t, "list", b.Commands()[0].Name)
}

func TestBaseSatisfiesPlugin(t *testing.T) {
	var p Plugin = &ExamplePlugin{}
	_, ok := p.(interface{ RegisterCommand(Command) })
	assert.True(t, ok)
}

func newTestApp() *cobra.Command {
	return &cobra.Command{Use: "opskit", SilenceUsage: true, SilenceErrors: true}
}
