package remote

import (
	"context"
	"strings"
	"sync"
)

// HostCommand records one command dispatched to one host.
type HostCommand struct {
	Host    string
	Command string
}

// FakeExecutor is a scriptable Executor for tests. It records every command
// and delegates to Handler when set.
type FakeExecutor struct {
	mu       sync.Mutex
	commands []HostCommand

	// Handler computes the response for a command. When nil every command
	// succeeds with empty output.
	Handler func(host, command string) (string, error)
}

// NewFakeExecutor creates an executor where every command succeeds.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{}
}

// Run records the command and returns the scripted response.
func (f *FakeExecutor) Run(ctx context.Context, host, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	f.commands = append(f.commands, HostCommand{Host: host, Command: command})
	f.mu.Unlock()

	if f.Handler != nil {
		return f.Handler(host, command)
	}
	return "", nil
}

// Commands returns a copy of all recorded commands.
func (f *FakeExecutor) Commands() []HostCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]HostCommand, len(f.commands))
	copy(out, f.commands)
	return out
}

// CommandsFor returns the commands dispatched to one host, in order.
func (f *FakeExecutor) CommandsFor(host string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.commands {
		if c.Host == host {
			out = append(out, c.Command)
		}
	}
	return out
}

// CommandsMatching returns all commands containing the substring.
func (f *FakeExecutor) CommandsMatching(substr string) []HostCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []HostCommand
	for _, c := range f.commands {
		if strings.Contains(c.Command, substr) {
			out = append(out, c)
		}
	}
	return out
}
