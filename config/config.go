// Package config holds the runtime configuration of the zk-vote node.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/zkvote/auth"
	"github.com/vocdoni/zkvote/identity"
	"github.com/vocdoni/zkvote/log"
)

const (
	// EnvDevelopment relaxes the secret and cookie rules for local runs.
	EnvDevelopment = "development"
	// EnvProduction requires an explicit signing secret and secure cookies.
	EnvProduction = "production"

	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8080
	DefaultVerifyURL       = "/verify"
	DefaultMonitorInterval = 30 * time.Second
)

// ErrMissingSecret is returned by Validate when no signing secret is set in
// production.
var ErrMissingSecret = errors.New("JWT_SECRET is required in production")

// DefaultGatedPaths are the path prefixes that require a verified credential.
var DefaultGatedPaths = []string{"/vote"}

// Config holds every runtime knob of the node.
type Config struct {
	Env      string
	Host     string
	Port     int
	LogLevel string
	DataDir  string

	// JWTSecret signs the verified credential. Empty means the development
	// secret, which is only accepted in development.
	JWTSecret  string
	VerifyURL  string
	GatedPaths []string

	SelfEndpoint string
	SelfScope    string
	SelfMinAge   int

	CoprocessorURL string

	Web3RPCs        []string
	VotingContract  string
	FeeOracle       string
	PrivKey         string
	MonitorInterval time.Duration
}

// Default returns the development configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Env:             EnvDevelopment,
		Host:            DefaultHost,
		Port:            DefaultPort,
		LogLevel:        log.LogLevelInfo,
		DataDir:         filepath.Join(home, ".zkvote"),
		VerifyURL:       DefaultVerifyURL,
		GatedPaths:      append([]string{}, DefaultGatedPaths...),
		SelfScope:       identity.DefaultScope,
		SelfMinAge:      identity.DefaultMinimumAge,
		MonitorInterval: DefaultMonitorInterval,
	}
}

// Development reports whether the node runs in development mode.
func (c *Config) Development() bool {
	return c.Env == EnvDevelopment
}

// Secret returns the credential signing secret, falling back to the
// development secret when none is configured.
func (c *Config) Secret() string {
	if c.JWTSecret == "" {
		return auth.DevelopmentSecret
	}
	return c.JWTSecret
}

// Validate checks the configuration. It never modifies it.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvDevelopment:
	case EnvProduction:
		if c.JWTSecret == "" {
			return ErrMissingSecret
		}
		if auth.IsDevelopmentSecret(c.JWTSecret) {
			return fmt.Errorf("the development secret cannot be used in production")
		}
	default:
		return fmt.Errorf("invalid environment %q, must be %s or %s", c.Env, EnvDevelopment, EnvProduction)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch strings.ToLower(c.LogLevel) {
	case log.LogLevelDebug, log.LogLevelInfo, log.LogLevelWarn, log.LogLevelError:
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.DataDir == "" {
		return fmt.Errorf("missing data directory")
	}
	if c.VerifyURL == "" {
		return fmt.Errorf("missing verify url")
	}
	for _, p := range c.GatedPaths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("gated path %q must start with /", p)
		}
	}
	if err := checkURL("identity provider endpoint", c.SelfEndpoint); err != nil {
		return err
	}
	if c.SelfMinAge < 0 {
		return fmt.Errorf("invalid minimum age %d", c.SelfMinAge)
	}
	if err := checkURL("co-processor url", c.CoprocessorURL); err != nil {
		return err
	}
	if len(c.Web3RPCs) == 0 {
		return fmt.Errorf("at least one web3 rpc endpoint is required")
	}
	for _, rpc := range c.Web3RPCs {
		if err := checkURL("web3 rpc endpoint", rpc); err != nil {
			return err
		}
	}
	if !common.IsHexAddress(c.VotingContract) {
		return fmt.Errorf("invalid voting contract address %q", c.VotingContract)
	}
	if !common.IsHexAddress(c.FeeOracle) {
		return fmt.Errorf("invalid fee oracle address %q", c.FeeOracle)
	}
	if c.PrivKey == "" {
		return fmt.Errorf("missing private key")
	}
	if c.MonitorInterval <= 0 {
		return fmt.Errorf("invalid monitor interval %s", c.MonitorInterval)
	}
	return nil
}

func checkURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("missing %s", name)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid %s %q", name, raw)
	}
	return nil
}
