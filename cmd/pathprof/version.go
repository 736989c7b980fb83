package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/spf13/cobra"

	"github.com/risor-io/pathprof/report"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE:  versionHandler,
	}
	cmd.Flags().StringP("output", "o", report.FormatText, "Output format (text, json)")
	return cmd
}

func versionHandler(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	switch strings.ToLower(format) {
	case "", report.FormatText:
		fmt.Fprintf(cmd.OutOrStdout(), "pathprof %s (commit %s, built %s)\n", version, commit, date)
		return nil
	case report.FormatJSON:
		return writeJSON(cmd.OutOrStdout(), map[string]string{
			"version": version,
			"commit":  commit,
			"date":    date,
		})
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	var data []byte
	var err error
	if color.NoColor {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = prettyjson.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
