package main

import (
	"github.com/spf13/cobra"

	"image-resizer-go/internal/bootstrap"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP upload service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.Run(cmd.Context(), bootstrap.Options{ConfigPath: ctx.configPath()})
		},
	}
}
