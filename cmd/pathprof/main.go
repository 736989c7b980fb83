package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:           "pathprof",
		Short:         "Profile the control-flow paths of bytecode programs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(cfgFile); err != nil {
				return err
			}
			processGlobalFlags()
			return nil
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pathprof.yaml)")
	flags.Bool("no-color", false, "Disable colored output")
	flags.String("log-level", "", "Log level (trace, debug, info, warn, error); empty disables logging")
	flags.String("log-format", "console", "Log format (console, json)")
	flags.String("cpu-profile", "", "Write a CPU profile of pathprof itself to this directory")
	for _, name := range []string{"no-color", "log-level", "log-format", "cpu-profile"} {
		viper.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(newRunCmd(), newDisCmd(), newVersionCmd())
	return rootCmd
}

func initConfig(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return err
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".pathprof")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("pathprof")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fatal(err)
	}
}
