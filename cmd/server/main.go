package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"simplerdb/pkg/api"
	"simplerdb/pkg/config"
	"simplerdb/pkg/core"
	"simplerdb/pkg/logger"
	"simplerdb/pkg/network"
)

func main() {
	var (
		configPath string
		httpAddr   string
		tcpAddr    string
	)

	rootCmd := &cobra.Command{
		Use:          "simplerdb-server",
		Short:        "Serve a SimpleRDB database over HTTP and TCP",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("http") {
				cfg.Server.Addr = httpAddr
			}
			if cmd.Flags().Changed("tcp") {
				cfg.Server.TCPAddr = tcpAddr
			}

			log, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := core.OpenConfigured(cfg, log)
			if err != nil {
				return err
			}
			shared := core.NewLocked(db)
			defer shared.Close()

			errs := make(chan error, 2)
			go func() {
				errs <- api.NewServer(shared, log.Named("http")).Start(cfg.Server.Addr)
			}()

			var tcp *network.TCPServer
			if cfg.Server.TCPAddr != "" {
				tcp = network.NewTCPServer(shared, log.Named("tcp"))
				go func() { errs <- tcp.Start(cfg.Server.TCPAddr) }()
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			select {
			case sig := <-stop:
				log.Info("shutting down", zap.String("signal", sig.String()))
			case err = <-errs:
				log.Error("listener stopped", zap.Error(err))
			}
			if tcp != nil {
				tcp.Close()
			}
			return err
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.Flags().StringVar(&httpAddr, "http", "", "HTTP listen address (overrides server.addr)")
	rootCmd.Flags().StringVar(&tcpAddr, "tcp", "", "TCP listen address (overrides server.tcp_addr, empty disables)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
