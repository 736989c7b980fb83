package main

import (
	"github.com/spf13/cobra"

	"github.com/risor-io/pathprof/asm"
	"github.com/risor-io/pathprof/dis"
)

func newDisCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dis <file>",
		Short: "Disassemble a program and show how each instruction is profiled",
		Args:  cobra.ExactArgs(1),
		RunE:  disHandler,
	}
	cmd.Flags().String("func", "", "Function to disassemble")
	return cmd
}

func disHandler(cmd *cobra.Command, args []string) error {
	program, err := asm.LoadFile(args[0])
	if err != nil {
		return err
	}
	fn, err := cmd.Flags().GetString("func")
	if err != nil {
		return err
	}
	if fn != "" {
		if err := checkFunctions(program, []string{fn}); err != nil {
			return err
		}
	}
	return dis.PrintProgram(program, fn, cmd.OutOrStdout())
}
