package main

import (
	"net/http"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shenjiangwei/poolkit/pool"
	"github.com/shenjiangwei/poolkit/poolconfig"
	"github.com/shenjiangwei/poolkit/poolmetrics"
	"github.com/shenjiangwei/poolkit/rpcpool"
)

var serveViper = viper.New()

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a RegionPool as an RPC server",
		Long: `serve starts a pool.RegionPool and exposes it over net/rpc at
--rpc-addr, optionally also exposing Prometheus counters over HTTP at
--metrics-addr.

Example:
  poolctl serve --rpc-addr=127.0.0.1:7420 --metrics-addr=127.0.0.1:9420`,
		RunE: runServe,
	}
	cmd.Flags().String("metrics-addr", "", "if set, serve Prometheus /metrics on this address")
	poolconfig.BindFlags(serveViper, cmd.Flags())
	rootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := poolconfig.Load(serveViper)
	if err != nil {
		return err
	}
	setLogLevel(cfg.LogLevel)

	region := pool.NewRegionPool(cfg.NewBacking(), cfg.RegionOptions()...)
	srv, err := rpcpool.NewServer(region)
	if err != nil {
		return err
	}

	metricsAddr := serveViper.GetString("metrics-addr")
	if metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", poolmetrics.Handler(region))
			logrus.WithField("subsystem", "poolctl").Infof("serving metrics on %s", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logrus.WithField("subsystem", "poolctl").Errorf("metrics server exited: %v", err)
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.RPCAddr) }()

	select {
	case <-ctx.Done():
		logrus.WithField("subsystem", "poolctl").Info("shutting down")
		return srv.Close()
	case err := <-errCh:
		return err
	}
}

func setLogLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	pool.SetLevel(lvl)
}
