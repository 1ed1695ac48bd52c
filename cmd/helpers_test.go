package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag of cmd and its subcommands to its default.
// Commands are package globals, so parsed values and Changed marks otherwise
// leak from one test into the next.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// cleanFlags resets all command flags now and again when the test ends
func cleanFlags(t *testing.T) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })
}

// executeRoot runs the root command with args on clean flags and returns
// what it wrote to stdout
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cleanFlags(t)

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	err := rootCmd.Execute()
	return out.String(), err
}
