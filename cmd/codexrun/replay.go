package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dmora/codexrun"
	"github.com/dmora/codexrun/filter"
	"github.com/dmora/codexrun/recorder"
)

type replayOptions struct {
	jsonOut   bool
	completed bool
	agentOnly bool
}

func newReplayCmd(g *globalOptions) *cobra.Command {
	o := &replayOptions{}
	cmd := &cobra.Command{
		Use:   "replay [flags] TRANSCRIPT",
		Short: "Print a recorded transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := g.logger(cmd)
			if err != nil {
				return err
			}
			tr, err := recorder.ReadFile(args[0])
			if err != nil {
				return err
			}
			logger.Debug("replaying transcript", "id", tr.Header.ID, "events", len(tr.Events))
			return o.replay(cmd, tr)
		},
	}
	fs := cmd.Flags()
	fs.BoolVar(&o.jsonOut, "json", false, "print events as JSONL")
	fs.BoolVar(&o.completed, "completed", false, "only print completed items")
	fs.BoolVar(&o.agentOnly, "agent", false, "only print agent messages")
	return cmd
}

func (o *replayOptions) replay(cmd *cobra.Command, tr *recorder.Transcript) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	src := make(chan codexrun.Event)
	go func() {
		defer close(src)
		for _, ev := range tr.Events {
			select {
			case src <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	var events <-chan codexrun.Event = src
	switch {
	case o.agentOnly:
		events = filter.AgentMessages(ctx, events)
	case o.completed:
		events = filter.Completed(ctx, events)
	}

	p := newPrinter(cmd.OutOrStdout(), o.jsonOut)
	p.header(tr.Header)
	for ev := range events {
		if err := p.event(ev); err != nil {
			return err
		}
	}
	return cmd.Context().Err()
}
