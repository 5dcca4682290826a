package cli

import (
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "notra",
		Short:         "notra - streaming chat bridge for hosted LLM providers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newChatCmd())
	root.AddCommand(newProvidersCmd())
	root.AddCommand(newVersionCmd())
	return root
}
