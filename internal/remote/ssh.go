package remote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/melbahja/goph"
	"golang.org/x/crypto/ssh"

	"cassandra-cluster-backup/internal/errors"
	"cassandra-cluster-backup/internal/logging"
)

// SSHConfig holds the connection settings shared by all hosts.
type SSHConfig struct {
	User          string        `mapstructure:"user" yaml:"user"`
	Port          uint          `mapstructure:"port" yaml:"port"`
	KeyFile       string        `mapstructure:"key_file" yaml:"key_file"`
	KeyPassphrase string        `mapstructure:"key_passphrase" yaml:"key_passphrase"`
	Password      string        `mapstructure:"password" yaml:"password"`
	UseSudo       bool          `mapstructure:"use_sudo" yaml:"use_sudo"`
	// InsecureHostKey disables known_hosts verification.
	InsecureHostKey bool          `mapstructure:"insecure_host_key" yaml:"insecure_host_key"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SSHExecutor implements Executor over SSH connections, one cached client per
// host. Safe for concurrent use across hosts.
type SSHExecutor struct {
	config SSHConfig
	logger *logging.Logger

	mu      sync.Mutex
	clients map[string]*goph.Client
}

// NewSSHExecutor creates an executor using the given connection settings.
func NewSSHExecutor(config SSHConfig, logger *logging.Logger) (*SSHExecutor, error) {
	if config.User == "" {
		return nil, errors.NewValidation("ssh user cannot be empty", nil)
	}
	if config.Port == 0 {
		config.Port = 22
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &SSHExecutor{
		config:  config,
		logger:  logger,
		clients: make(map[string]*goph.Client),
	}, nil
}

func (e *SSHExecutor) auth() (goph.Auth, error) {
	if e.config.KeyFile != "" {
		return goph.Key(e.config.KeyFile, e.config.KeyPassphrase)
	}
	if e.config.Password != "" {
		return goph.Password(e.config.Password), nil
	}
	return goph.UseAgent()
}

func (e *SSHExecutor) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if e.config.InsecureHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	return goph.DefaultKnownHosts()
}

func (e *SSHExecutor) client(host string) (*goph.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if client, ok := e.clients[host]; ok {
		return client, nil
	}

	auth, err := e.auth()
	if err != nil {
		return nil, errors.NewRemoteStep("failed to resolve ssh authentication", err).WithContext("host", host)
	}

	callback, err := e.hostKeyCallback()
	if err != nil {
		return nil, errors.NewRemoteStep("failed to load known hosts", err).WithContext("host", host)
	}

	client, err := goph.NewConn(&goph.Config{
		User:     e.config.User,
		Addr:     host,
		Port:     e.config.Port,
		Auth:     auth,
		Timeout:  e.config.Timeout,
		Callback: callback,
	})
	if err != nil {
		return nil, errors.NewRemoteStep("failed to connect", err).WithContext("host", host)
	}

	e.clients[host] = client
	return client, nil
}

// Run executes a command on the given host and returns its combined output.
// With UseSudo set, the command runs through a privileged shell so that pipes
// and redirections keep working.
func (e *SSHExecutor) Run(ctx context.Context, host, command string) (string, error) {
	client, err := e.client(host)
	if err != nil {
		return "", err
	}

	remote := command
	if e.config.UseSudo {
		remote = fmt.Sprintf("sudo /bin/sh -c %q", command)
	}

	e.logger.WithFields(map[string]interface{}{"host": host, "command": command}).Debug("Running remote command")

	cmd, err := client.CommandContext(ctx, remote)
	if err != nil {
		return "", errors.NewRemoteStep("failed to open ssh session", err).WithContext("host", host)
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), errors.NewRemoteStep("remote command failed", err).
			WithContext("host", host).
			WithContext("command", command)
	}
	return string(out), nil
}

// Close closes all cached connections.
func (e *SSHExecutor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	for host, client := range e.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(e.clients, host)
	}
	return firstErr
}
