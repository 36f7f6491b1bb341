package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"image-resizer-go/internal/bootstrap"
)

type runFunc func(context.Context, bootstrap.Options) error

func newRootCommand(run runFunc) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "resizer-server",
		Short:         "Serve the batch resize API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] [INFO] [BOOT] starting resizer-server...\n", time.Now().Format("2006-01-02 15:04:05.000"))
			return run(cmd.Context(), bootstrap.Options{ConfigPath: configPath})
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")

	return cmd
}

func main() {
	if err := newRootCommand(bootstrap.Run).ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "resizer-server failed: %v\n", err)
		os.Exit(1)
	}
}
