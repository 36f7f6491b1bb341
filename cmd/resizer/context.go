package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"image-resizer-go/internal/platform/config"
	"image-resizer-go/internal/platform/logging"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		result, err := config.NewLoader().WithPath(c.configPath()).Load()
		if err != nil {
			c.configErr = err
			return
		}
		c.config = result.Config
	})
	return c.config, c.configErr
}

// consoleLogger logs to the command's stderr only; the CLI never writes log
// files.
func (c *commandContext) consoleLogger(cmd *cobra.Command) (*logging.Logger, error) {
	level := "warn"
	if c.verbose != nil && *c.verbose {
		level = "debug"
	}
	return logging.New(logging.Config{
		Level:   level,
		Console: cmd.ErrOrStderr(),
	})
}
