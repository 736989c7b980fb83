package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pkg/profile"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/viper"

	"github.com/risor-io/pathprof/bytecode"
)

var red = color.New(color.FgRed).SprintFunc()

func fatal(msg interface{}) {
	var s string
	switch msg := msg.(type) {
	case string:
		s = msg
	case error:
		s = msg.Error()
	default:
		s = fmt.Sprintf("%v", msg)
	}
	fmt.Fprintf(os.Stderr, "%s\n", red(s))
	os.Exit(1)
}

func isTerminalOutput() bool {
	stdout := os.Stdout.Fd()
	return isatty.IsTerminal(stdout) || isatty.IsCygwinTerminal(stdout)
}

// Reads global flags from Viper and adjusts the environment accordingly.
func processGlobalFlags() {
	if viper.GetBool("no-color") || !isTerminalOutput() {
		color.NoColor = true
	}
}

type stopper interface{ Stop() }

type noopStopper struct{}

func (noopStopper) Stop() {}

// startProfiling starts a CPU profile of the CLI when cpu-profile names a
// directory.
func startProfiling() stopper {
	dir := viper.GetString("cpu-profile")
	if dir == "" {
		return noopStopper{}
	}
	return profile.Start(profile.CPUProfile, profile.ProfilePath(dir), profile.Quiet)
}

// checkFunctions returns an error naming every entry of names that is not a
// function of program, with close matches as suggestions.
func checkFunctions(program *bytecode.Program, names []string) error {
	available := program.FunctionNames()
	var problems []string
	for _, name := range names {
		if slices.Contains(available, name) {
			continue
		}
		msg := fmt.Sprintf("unknown function %q", name)
		if matches := fuzzy.Find(name, available); len(matches) > 0 {
			suggestions := make([]string, 0, len(matches))
			for _, m := range matches {
				suggestions = append(suggestions, fmt.Sprintf("%q", m.Str))
			}
			msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(suggestions, " or "))
		} else {
			msg += fmt.Sprintf(" (available: %s)", strings.Join(available, ", "))
		}
		problems = append(problems, msg)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}
