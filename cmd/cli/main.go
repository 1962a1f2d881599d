package main

import (
	"fmt"
	"os"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"simplerdb/pkg/config"
	"simplerdb/pkg/core"
	"simplerdb/pkg/logger"
	"simplerdb/pkg/repl"
)

func main() {
	var (
		configPath string
		backend    string
		dataPath   string
		degree     int
		plain      bool
	)

	rootCmd := &cobra.Command{
		Use:          "simplerdb",
		Short:        "Interactive shell for SimpleRDB",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("backend") {
				cfg.Storage.Backend = backend
			}
			if cmd.Flags().Changed("data") {
				cfg.Storage.Path = dataPath
			}
			if cmd.Flags().Changed("degree") {
				cfg.Tree.Degree = degree
			}
			if err := cfg.Validate(); err != nil {
				return err
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
			defer db.Close()
			log.Debug("database opened",
				zap.String("backend", cfg.Storage.Backend),
				zap.String("path", cfg.Storage.Path),
				zap.Strings("tables", db.TableNames()))

			if plain {
				return repl.New(db, repl.NewScannerReader(os.Stdin), os.Stdout).Run()
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          cfg.CLI.Prompt,
				HistoryFile:     cfg.CLI.HistoryFile,
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return fmt.Errorf("start readline: %w", err)
			}
			defer rl.Close()
			return repl.New(db, rl, rl.Stdout()).Run()
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.Flags().StringVar(&backend, "backend", "", "Snapshot backend: json, sqlite, leveldb or memory")
	rootCmd.Flags().StringVar(&dataPath, "data", "", "Snapshot location for the chosen backend")
	rootCmd.Flags().IntVar(&degree, "degree", 0, "B+Tree degree for new tables")
	rootCmd.Flags().BoolVar(&plain, "plain", false, "Read statements from stdin without line editing")

	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
