package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rushteam/winekit/core"
	"github.com/rushteam/winekit/pkg/logging"
	"github.com/rushteam/winekit/store"
)

// globalOptions 是所有子命令共享的持久化参数
type globalOptions struct {
	logLevel  string
	logFormat string
	store     store.Config
	runID     string

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "winekit",
		Short:         "Wine-quality regression pipeline: preprocess, train, evaluate, serve",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(opts.logLevel, opts.logFormat, os.Stderr)
			if err != nil {
				return err
			}
			opts.logger = logger
			return core.ValidateConfig(&opts.store)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.logLevel, "log-level", envOr("WINEKIT_LOG_LEVEL", "info"), "log level: debug|info|warn|error")
	pf.StringVar(&opts.logFormat, "log-format", envOr("WINEKIT_LOG_FORMAT", "text"), "log format: text|json")
	pf.StringVar(&opts.store.Type, "store", envOr("WINEKIT_STORE", "none"), "run registry: none|memory|redis|badger")
	pf.StringVar(&opts.store.RedisAddr, "redis-addr", envOr("WINEKIT_REDIS_ADDR", "localhost:6379"), "redis address for --store redis")
	pf.IntVar(&opts.store.RedisDB, "redis-db", 0, "redis database for --store redis")
	pf.StringVar(&opts.store.BadgerDir, "badger-dir", envOr("WINEKIT_BADGER_DIR", ""), "badger directory for --store badger (empty: in-memory)")
	pf.StringVar(&opts.runID, "run-id", os.Getenv("WINEKIT_RUN_ID"), "run id shared by the stages of one run (default: random UUID)")

	root.AddCommand(
		newPreprocessCmd(opts),
		newTrainCmd(opts),
		newEvaluateCmd(opts),
		newRunCmd(opts),
		newRunsCmd(opts),
		newProxyCmd(opts),
		newServeModelCmd(opts),
	)
	return root
}

// runContext 打开运行登记存储并构建 RunContext；返回的 cleanup 负责关闭存储
func (o *globalOptions) runContext(seed int64) (*core.RunContext, func(), error) {
	s, err := store.Open(o.store, o.logger)
	if err != nil {
		return nil, nil, err
	}
	rcOpts := []core.RunOption{
		core.WithLogger(o.logger),
		core.WithRunID(o.runID),
	}
	if seed != 0 {
		rcOpts = append(rcOpts, core.WithSeed(seed))
	}
	cleanup := func() {}
	if s != nil {
		rcOpts = append(rcOpts, core.WithStore(s))
		cleanup = func() {
			if err := s.Close(); err != nil {
				o.logger.Warn("close store", "error", err)
			}
		}
	}
	return core.NewRunContext(rcOpts...), cleanup, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
