package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zameerb1/medasr/internal/cli"
)

func main() {
	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if isUsageError(err) {
			fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", helpTarget(cmd, os.Args[1:]))
		}
		os.Exit(1)
	}
}

// isUsageError distinguishes bad invocations, which deserve a --help hint,
// from genuine runtime failures, which do not.
func isUsageError(err error) bool {
	if err == nil {
		return false
	}

	message := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"unknown command",
		"unknown flag",
		"unknown shorthand flag",
		"accepts ",
		"requires at least",
		"requires at most",
		"requires between",
		"required flag",
		"missing required",
	} {
		if strings.Contains(message, pattern) {
			return true
		}
	}
	return false
}

// helpTarget picks the most specific command path for the --help hint, so a
// bad flag on "medasr serve" points at "medasr serve --help".
func helpTarget(root *cobra.Command, args []string) string {
	if root == nil {
		return "medasr"
	}
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return root.CommandPath()
	}
	if found, _, err := root.Find(args); err == nil && found != nil {
		return found.CommandPath()
	}
	return root.CommandPath()
}
