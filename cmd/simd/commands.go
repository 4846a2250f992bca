package main

import (
	"github.com/scott-cotton/cli"

	"github.com/evo-sim/simd/server"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	return cli.NewCommandAt(&cfg.Main, "simd").
		WithSynopsis("simd command [opts]").
		WithDescription("simd is the evo-sim backend server tool.").
		WithRun(func(cc *cli.Context, args []string) error {
			return simdMain(cfg, cc, args)
		}).
		WithSubs(
			ServeCommand(cfg),
			CheckCommand(cfg))
}

func ServeCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ServeConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Serve, "serve").
		WithAliases("s").
		WithSynopsis("serve [-config <file>] [-addr <addr>] [-buf <bytes>] [-sessions <n>]").
		WithDescription("run the evo-sim backend server").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return serve(cfg, cc, args)
		})
}

func CheckCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &CheckConfig{MainConfig: mainCfg, Addr: server.DefaultListenAddr, Size: 4096, N: 1}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Check, "check").
		WithAliases("c").
		WithSynopsis("check [-addr <addr>] [scenario...]").
		WithDescription(checkDescription).
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return check(cfg, cc, args)
		})
}

const checkDescription = `check runs echo scenarios against a running server and reports
pass/fail per scenario, with a diff of any payload that came back changed.

Scenarios:

  hello     one exchange comes back unchanged
  silent    a client that connects and leaves without sending does no harm
  chunks    consecutive exchanges on one connection stay in order
  bulk      a payload larger than the server's read chunk survives intact
  payload   the -payload string, when one is given

With no arguments all scenarios run. Arguments select scenarios by name
or prefix. -n repeats each selected scenario.`
