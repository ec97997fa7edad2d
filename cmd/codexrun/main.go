// Command codexrun runs codex agent turns from the shell and replays
// recorded transcripts.
//
//	codexrun run "Summarize this repository"
//	codexrun run --stream --record turn.jsonl.zst --sandbox read-only "Fix the failing test"
//	codexrun replay turn.jsonl.zst
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dmora/codexrun/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// globalOptions are the persistent flags shared by all subcommands.
type globalOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:           "codexrun",
		Short:         "Drive codex exec turns and replay their transcripts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "",
		"config file (default $"+config.EnvConfig+")")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn",
		"diagnostic log level: debug, info, warn, error")

	root.AddCommand(newRunCmd(g), newReplayCmd(g))
	return root
}

func (g *globalOptions) logger(cmd *cobra.Command) (*slog.Logger, error) {
	return newLogger(g.logLevel, cmd.ErrOrStderr())
}

func (g *globalOptions) loadConfig() (*config.Config, error) {
	if g.configPath != "" {
		return config.LoadFile(g.configPath)
	}
	return config.Load()
}
