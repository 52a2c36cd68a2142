package main

import (
	"encoding/json"
	"finance_planner/internal/config"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const (
	appName = "finance_planner"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	env        config.Env
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "planner",
		Short:         "Loan projection, scenario planning and recurring transaction engine",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			env, err := config.LoadEnv()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("config") {
				env.ConfigPath = opts.configPath
			}
			cfg, err := config.Load(env.ConfigPath)
			if err != nil {
				return err
			}
			opts.env = env
			opts.cfg = cfg
			opts.logger = setupLogger(env.LogLevel, cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config.toml (overrides CONFIG_PATH)")

	root.AddCommand(
		newServeCmd(opts),
		newProcessDueCmd(opts),
		newAmortizeCmd(opts),
		newScenariosCmd(opts),
		newImportOffersCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

func setupLogger(level string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	handler := slog.NewJSONHandler(w, opts)
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
