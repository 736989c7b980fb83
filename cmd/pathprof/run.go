package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/risor-io/pathprof"
	"github.com/risor-io/pathprof/asm"
	"github.com/risor-io/pathprof/internal/logging"
	"github.com/risor-io/pathprof/report"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run a program under the path profiler and report its paths",
		Args:  cobra.ExactArgs(1),
		RunE:  runHandler,
	}
	flags := cmd.Flags()
	flags.StringP("output", "o", report.FormatText, "Output format (text, json, yaml)")
	flags.String("filter", "", "Keep paths matching an expression over function, name, length, count and pcs")
	flags.Uint64("min-count", 0, "Keep paths completed at least this many times")
	flags.StringSlice("func", nil, "Report only these functions")
	flags.Int64Slice("arg", nil, "Argument passed to the entry function (repeatable)")
	flags.Int("max-depth", 0, "Maximum call depth of the profiled program")
	for _, name := range []string{"output", "filter", "min-count"} {
		viper.BindPFlag(name, flags.Lookup(name))
	}
	cmd.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return report.Formats, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func runHandler(cmd *cobra.Command, args []string) error {
	defer startProfiling().Stop()

	logger, err := logging.New(cmd.ErrOrStderr(), logging.Config{
		Level:   viper.GetString("log-level"),
		Format:  viper.GetString("log-format"),
		NoColor: viper.GetBool("no-color"),
	})
	if err != nil {
		return err
	}

	program, err := asm.LoadFile(args[0])
	if err != nil {
		return err
	}

	functions, err := cmd.Flags().GetStringSlice("func")
	if err != nil {
		return err
	}
	if err := checkFunctions(program, functions); err != nil {
		return err
	}

	var filter *report.Filter
	if source := viper.GetString("filter"); source != "" {
		if filter, err = report.CompileFilter(source); err != nil {
			return err
		}
	}

	entryArgs, err := cmd.Flags().GetInt64Slice("arg")
	if err != nil {
		return err
	}
	maxDepth, err := cmd.Flags().GetInt("max-depth")
	if err != nil {
		return err
	}

	doc, err := pathprof.Profile(cmd.Context(), program,
		pathprof.WithArgs(entryArgs...),
		pathprof.WithOutput(cmd.ErrOrStderr()),
		pathprof.WithLogger(logger),
		pathprof.WithMaxFrameDepth(maxDepth),
	)
	if err != nil {
		return err
	}
	doc, err = doc.Select(report.Selection{
		Functions: functions,
		MinCount:  viper.GetUint64("min-count"),
		Filter:    filter,
	})
	if err != nil {
		return err
	}
	logger.Info().
		Str("program", doc.Program).
		Str("run_id", doc.RunID).
		Uint64("steps", doc.Steps).
		Int("paths", doc.PathCount()).
		Msg("profile complete")

	return report.Write(cmd.OutOrStdout(), doc, viper.GetString("output"))
}
