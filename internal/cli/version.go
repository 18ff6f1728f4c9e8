package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func init() {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the ragfence version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("ragfence " + Version)
		},
	}

	RootCmd.AddCommand(cmd)
}
