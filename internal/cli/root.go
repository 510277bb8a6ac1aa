package cli

import (
	"github.com/spf13/cobra"
)

// Build-time variables injected via ldflags.
var (
	Version = "dev"
)

// NewRootCommand returns the partition-runner root command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "partition-runner",
		Short:         "Run element lists through the partitioned batch executor",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewRunCmd())

	return cmd
}
