package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
	"github.com/vocdoni/zkvote/api"
	"github.com/vocdoni/zkvote/auth"
	"github.com/vocdoni/zkvote/config"
	"github.com/vocdoni/zkvote/coprocessor"
	"github.com/vocdoni/zkvote/identity"
	"github.com/vocdoni/zkvote/log"
	"github.com/vocdoni/zkvote/service"
	"github.com/vocdoni/zkvote/session"
	"github.com/vocdoni/zkvote/storage"
	"github.com/vocdoni/zkvote/voting"
	"github.com/vocdoni/zkvote/web3"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

func main() {
	defaults := config.Default()
	app := &cli.App{
		Name:  "zkvote-node",
		Usage: "identity gated private voting gateway",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env", Value: defaults.Env, EnvVars: []string{"ZKVOTE_ENV"}, Usage: "development or production"},
			&cli.StringFlag{Name: "host", Value: defaults.Host, EnvVars: []string{"ZKVOTE_HOST"}, Usage: "API listen host"},
			&cli.IntFlag{Name: "port", Value: defaults.Port, EnvVars: []string{"ZKVOTE_PORT"}, Usage: "API listen port"},
			&cli.StringFlag{Name: "logLevel", Value: defaults.LogLevel, EnvVars: []string{"ZKVOTE_LOG_LEVEL"}, Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "datadir", Value: defaults.DataDir, EnvVars: []string{"ZKVOTE_DATADIR"}, Usage: "directory of the local database"},
			&cli.StringFlag{Name: "jwtSecret", EnvVars: []string{"JWT_SECRET"}, Usage: "credential signing secret, required in production"},
			&cli.StringFlag{Name: "verifyURL", Value: defaults.VerifyURL, EnvVars: []string{"ZKVOTE_VERIFY_URL"}, Usage: "redirect target for requests without a valid credential"},
			&cli.StringSliceFlag{Name: "gatedPaths", Value: cli.NewStringSlice(defaults.GatedPaths...), EnvVars: []string{"ZKVOTE_GATED_PATHS"}, Usage: "path prefixes that require a credential"},
			&cli.StringFlag{Name: "selfEndpoint", EnvVars: []string{"SELF_ENDPOINT"}, Usage: "identity provider verification endpoint"},
			&cli.StringFlag{Name: "selfScope", Value: defaults.SelfScope, EnvVars: []string{"SELF_SCOPE"}, Usage: "identity provider application scope"},
			&cli.IntFlag{Name: "selfMinAge", Value: defaults.SelfMinAge, EnvVars: []string{"SELF_MIN_AGE"}, Usage: "minimum disclosed age"},
			&cli.StringFlag{Name: "coprocessor", EnvVars: []string{"ZKVOTE_COPROCESSOR_URL"}, Usage: "co-processor gateway url"},
			&cli.StringSliceFlag{Name: "web3rpc", EnvVars: []string{"ZKVOTE_WEB3_RPC"}, Usage: "web3 rpc endpoint, can be repeated"},
			&cli.StringFlag{Name: "voting", EnvVars: []string{"ZKVOTE_VOTING_CONTRACT"}, Usage: "voting contract address"},
			&cli.StringFlag{Name: "feeOracle", EnvVars: []string{"ZKVOTE_FEE_ORACLE"}, Usage: "co-processor fee oracle address"},
			&cli.StringFlag{Name: "privkey", EnvVars: []string{"ZKVOTE_PRIVKEY"}, Usage: "hex private key of the relayer account"},
			&cli.DurationFlag{Name: "monitorInterval", Value: defaults.MonitorInterval, EnvVars: []string{"ZKVOTE_MONITOR_INTERVAL"}, Usage: "tally monitor polling interval"},
		},
		Action: func(c *cli.Context) error {
			conf := &config.Config{
				Env:             c.String("env"),
				Host:            c.String("host"),
				Port:            c.Int("port"),
				LogLevel:        c.String("logLevel"),
				DataDir:         c.String("datadir"),
				JWTSecret:       c.String("jwtSecret"),
				VerifyURL:       c.String("verifyURL"),
				GatedPaths:      c.StringSlice("gatedPaths"),
				SelfEndpoint:    c.String("selfEndpoint"),
				SelfScope:       c.String("selfScope"),
				SelfMinAge:      c.Int("selfMinAge"),
				CoprocessorURL:  c.String("coprocessor"),
				Web3RPCs:        c.StringSlice("web3rpc"),
				VotingContract:  c.String("voting"),
				FeeOracle:       c.String("feeOracle"),
				PrivKey:         c.String("privkey"),
				MonitorInterval: c.Duration("monitorInterval"),
			}
			if err := conf.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return run(c.Context, conf)
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, conf *config.Config) error {
	log.Init(conf.LogLevel, "stdout", nil)
	if conf.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, using the public development secret")
	}

	database, err := metadb.New(db.TypePebble, conf.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	stg := storage.New(database)
	defer stg.Close()

	contracts, err := web3.NewContracts(&web3.Addresses{
		Voting:    common.HexToAddress(conf.VotingContract),
		FeeOracle: common.HexToAddress(conf.FeeOracle),
	}, conf.Web3RPCs[0])
	if err != nil {
		return err
	}
	for _, rpc := range conf.Web3RPCs[1:] {
		if err := contracts.AddWeb3Endpoint(rpc); err != nil {
			log.Warnw("failed to add endpoint", "rpc", rpc, "error", err.Error())
		}
	}
	if err := contracts.SetAccountPrivateKey(conf.PrivKey); err != nil {
		return err
	}
	log.Infow("contracts initialized",
		"chainId", contracts.ChainID,
		"voting", contracts.VotingAddress().Hex(),
		"account", contracts.AccountAddress().Hex())

	backend, err := coprocessor.NewHTTPBackend(conf.CoprocessorURL)
	if err != nil {
		return err
	}
	enc := coprocessor.New(backend)
	verifier, err := identity.NewHTTPVerifier(conf.SelfEndpoint, conf.SelfScope, conf.SelfMinAge)
	if err != nil {
		return err
	}
	issuer, err := auth.NewIssuer(conf.Secret(), auth.DefaultTTL)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	monitor := service.NewTallyMonitor(contracts, voting.NewRevealer(contracts, enc, stg), stg, conf.MonitorInterval)
	if err := monitor.Start(ctx); err != nil {
		return err
	}
	defer monitor.Stop()

	apiService := service.NewAPI(&api.APIConfig{
		Host:        conf.Host,
		Port:        conf.Port,
		Storage:     stg,
		Sessions:    session.NewMemoryStore(session.DefaultTTL),
		Issuer:      issuer,
		Verifier:    verifier,
		Ledger:      contracts,
		Encryptor:   enc,
		VerifyURL:   conf.VerifyURL,
		GatedPaths:  conf.GatedPaths,
		Development: conf.Development(),
	})
	if err := apiService.Start(ctx); err != nil {
		return err
	}
	defer apiService.Stop()
	log.Infow("node started", "env", conf.Env, "address", apiService.Addr().String())

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}
