package config

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/zkvote/auth"
)

func validConfig() *Config {
	c := Default()
	c.SelfEndpoint = "https://identity.example.org/api/verify"
	c.CoprocessorURL = "http://localhost:8090"
	c.Web3RPCs = []string{"http://localhost:8545"}
	c.VotingContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	c.FeeOracle = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
	c.PrivKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	return c
}

func TestDefault(t *testing.T) {
	c := qt.New(t)
	conf := Default()
	c.Assert(conf.Development(), qt.IsTrue)
	c.Assert(conf.Port, qt.Equals, DefaultPort)
	c.Assert(conf.GatedPaths, qt.DeepEquals, []string{"/vote"})
	c.Assert(conf.Secret(), qt.Equals, auth.DevelopmentSecret)
	// defaults alone lack the external endpoints
	c.Assert(conf.Validate(), qt.IsNotNil)
	c.Assert(validConfig().Validate(), qt.IsNil)
}

func TestValidateSecret(t *testing.T) {
	c := qt.New(t)

	conf := validConfig()
	conf.Env = EnvProduction
	c.Assert(conf.Validate(), qt.ErrorIs, ErrMissingSecret)

	conf.JWTSecret = auth.DevelopmentSecret
	c.Assert(conf.Validate(), qt.ErrorMatches, "the development secret cannot be used in production")

	conf.JWTSecret = "a-production-secret"
	c.Assert(conf.Validate(), qt.IsNil)
	c.Assert(conf.Secret(), qt.Equals, "a-production-secret")
	c.Assert(conf.Development(), qt.IsFalse)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		err    string
	}{
		{"env", func(c *Config) { c.Env = "staging" }, `invalid environment "staging".*`},
		{"port", func(c *Config) { c.Port = 70000 }, "invalid port 70000"},
		{"log level", func(c *Config) { c.LogLevel = "trace" }, `invalid log level "trace"`},
		{"datadir", func(c *Config) { c.DataDir = "" }, "missing data directory"},
		{"gated path", func(c *Config) { c.GatedPaths = []string{"vote"} }, `gated path "vote" must start with /`},
		{"identity", func(c *Config) { c.SelfEndpoint = "" }, "missing identity provider endpoint"},
		{"coprocessor", func(c *Config) { c.CoprocessorURL = "localhost" }, `invalid co-processor url "localhost"`},
		{"no rpc", func(c *Config) { c.Web3RPCs = nil }, "at least one web3 rpc endpoint is required"},
		{"bad rpc", func(c *Config) { c.Web3RPCs = []string{"::"} }, `invalid web3 rpc endpoint "::"`},
		{"voting", func(c *Config) { c.VotingContract = "0x1234" }, `invalid voting contract address "0x1234"`},
		{"oracle", func(c *Config) { c.FeeOracle = "" }, `invalid fee oracle address ""`},
		{"privkey", func(c *Config) { c.PrivKey = "" }, "missing private key"},
		{"interval", func(c *Config) { c.MonitorInterval = -time.Second }, "invalid monitor interval -1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := validConfig()
			tt.modify(conf)
			qt.New(t).Assert(conf.Validate(), qt.ErrorMatches, tt.err)
		})
	}
}
