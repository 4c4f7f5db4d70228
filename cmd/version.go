package cmd

import (
	"fmt"

	"github.com/justweather/watchdog/internal/core"
	"github.com/spf13/cobra"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("jws-watchdog %s\n", core.FormatVersion(core.Version))
		},
	}
}
