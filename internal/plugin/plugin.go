package plugin

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Command describes one command contributed by a plugin. It is a plain
// descriptor; the Registry turns it into a cobra command when the plugin
// is mounted.
type Command struct {
	// Name is the command's name within the plugin's sub-group.
	Name string

	// Help is the one-line help text.
	Help string

	// Run is the command callback.
	Run func(cmd *cobra.Command, args []string) error

	// Flags installs command-specific flags. Optional.
	Flags func(flags *pflag.FlagSet)
}

// Plugin is the contract every plugin satisfies. Concrete plugins embed
// Base and override Setup to register their commands.
type Plugin interface {
	// Name returns the plugin's registration name. An empty string means
	// "derive it from the concrete type" (see DeriveName).
	Name() string

	// Commands returns the registered commands in registration order.
	Commands() []Command

	// Setup registers the plugin's commands. It is invoked exactly once,
	// after construction and before the plugin is handed to the Registry.
	Setup() error
}

// Base carries the state shared by all plugins: the facade handle and the
// command list. Setup is a no-op so minimal plugins only implement what
// they need.
type Base struct {
	// Client is the facade the plugin was constructed with.
	Client Facade

	commands []Command
}

// Name returns "" so the registry derives the name from the concrete type.
func (b *Base) Name() string { return "" }

// Setup is a no-op by default.
func (b *Base) Setup() error { return nil }

// Commands returns the registered commands in registration order.
func (b *Base) Commands() []Command {
	out := make([]Command, len(b.commands))
	copy(out, b.commands)
	return out
}

// RegisterCommand adds a command to the plugin. Registering a name twice
// replaces the earlier descriptor in place, keeping the original position.
func (b *Base) RegisterCommand(cmd Command) {
	for i, existing := range b.commands {
		if existing.Name == cmd.Name {
			b.commands[i] = cmd
			return
		}
	}
	b.commands = append(b.commands, cmd)
}

// DeriveName resolves a plugin's registration name. A non-empty Name()
// wins; otherwise the concrete type's name is normalized: a trailing
// "Plugin" suffix is stripped, camel-case words and underscores become
// dash-separated, and the result is lowercased.
//
//	ResourceManagerPlugin -> resource-manager
//	ExamplePlugin         -> example
func DeriveName(p Plugin) string {
	if p == nil {
		return ""
	}
	if name := p.Name(); name != "" {
		return name
	}

	t := reflect.TypeOf(p)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}

	typeName := t.Name()
	trimmed := strings.TrimSuffix(typeName, "Plugin")
	if trimmed == "" {
		trimmed = typeName
	}
	return kebabCase(trimmed)
}

// kebabCase converts CamelCase and snake_case to dash-separated lowercase.
// Acronym runs stay together: "HTTPStatus" becomes "http-status".
func kebabCase(name string) string {
	name = strings.ReplaceAll(name, "_", "-")
	runes := []rune(name)

	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteRune('-')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
