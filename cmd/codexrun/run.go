package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmora/codexrun"
	"github.com/dmora/codexrun/config"
	"github.com/dmora/codexrun/engine/cli/codex"
	"github.com/dmora/codexrun/filter"
	"github.com/dmora/codexrun/recorder"
)

type runOptions struct {
	thread  threadFlags
	images  []string
	schema  string
	resume  string
	stream  bool
	jsonOut bool
	record  string
}

func newRunCmd(g *globalOptions) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [flags] PROMPT...",
		Short: "Run one turn and print the result",
		Long: `Run one codex exec turn. The prompt is taken from the arguments, or from
stdin when the only argument is "-".

By default the turn is aggregated and only the final response is printed.
--stream prints completed items as they arrive; --json prints every event
in codex's wire format. --record writes a transcript (zstd-compressed when
the path ends in .zst) and implies --stream unless --json is set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, g, args)
		},
	}
	fs := cmd.Flags()
	o.thread.register(fs)
	fs.StringArrayVarP(&o.images, "image", "i", nil, "attach a local image (repeatable)")
	fs.StringVar(&o.schema, "schema", "", "JSON (or JSONC) schema file for the final response")
	fs.StringVar(&o.resume, "resume", "", "resume the thread with this id")
	fs.BoolVar(&o.stream, "stream", false, "print items as they complete")
	fs.BoolVar(&o.jsonOut, "json", false, "print raw events as JSONL")
	fs.StringVar(&o.record, "record", "", "write a transcript to this path")
	return cmd
}

func (o *runOptions) run(cmd *cobra.Command, g *globalOptions, args []string) error {
	logger, err := g.logger(cmd)
	if err != nil {
		return err
	}
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	threadOpts, err := cfg.ThreadOptions()
	if err != nil {
		return err
	}
	o.thread.apply(cmd.Flags(), &threadOpts)

	prompt, err := readPrompt(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	in := codexrun.Text(prompt)
	if len(o.images) > 0 {
		segs := []codexrun.UserInput{codexrun.TextInput(prompt)}
		for _, img := range o.images {
			segs = append(segs, codexrun.ImageInput(img))
		}
		in = codexrun.Segments(segs...)
	}

	var turnOpts codexrun.TurnOptions
	if o.schema != "" {
		schema, err := config.LoadOutputSchema(o.schema)
		if err != nil {
			return err
		}
		turnOpts.OutputSchema = schema
	}

	client := codex.NewClient(cfg.ClientOptions(logger))
	var thread *codexrun.Thread
	if o.resume != "" {
		thread = client.ResumeThread(o.resume, threadOpts)
	} else {
		thread = client.StartThread(threadOpts)
	}

	out := cmd.OutOrStdout()
	if !o.stream && !o.jsonOut && o.record == "" {
		turn, err := thread.Run(cmd.Context(), in, turnOpts)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, turn.FinalResponse)
		newPrinter(cmd.ErrOrStderr(), false).usage(turn.Usage)
		return nil
	}
	return o.streamTurn(cmd, thread, in, turnOpts, out)
}

func (o *runOptions) streamTurn(cmd *cobra.Command, thread *codexrun.Thread, in codexrun.Input, opts codexrun.TurnOptions, out io.Writer) (err error) {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	st, err := thread.RunStreamed(ctx, in, opts)
	if err != nil {
		return err
	}
	defer st.Close()

	events := st.Events()
	if o.record != "" {
		rec, err := recorder.Create(o.record)
		if err != nil {
			return err
		}
		recorded := recorder.Tee(ctx, rec, events)
		defer func() {
			// Stop the pipeline and wait for Tee before closing the file.
			cancel()
			for range recorded {
			}
			if cerr := rec.Close(); cerr != nil && err == nil {
				err = cerr
			}
			if rerr := rec.Err(); rerr != nil && err == nil {
				err = rerr
			}
		}()
		events = recorded
	}

	p := newPrinter(out, o.jsonOut)
	if !o.jsonOut {
		// Lifecycle and partial item events stay in the transcript only.
		events = filter.Filter(ctx, events,
			codexrun.EventThreadStarted,
			codexrun.EventItemStarted,
			codexrun.EventItemCompleted,
			codexrun.EventTurnCompleted,
			codexrun.EventTurnFailed,
			codexrun.EventError,
		)
	}

	var failed *codexrun.TurnFailedError
	for ev := range events {
		if err := p.event(ev); err != nil {
			return err
		}
		if ev.Type == codexrun.EventTurnFailed && ev.Error != nil {
			failed = &codexrun.TurnFailedError{Message: ev.Error.Message}
		}
	}
	if err := st.Err(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if failed != nil {
		return failed
	}
	return nil
}

// readPrompt joins the arguments, or reads stdin when the only argument
// is "-".
func readPrompt(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading prompt: %w", err)
		}
		args = []string{string(data)}
	}
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		return "", errors.New("empty prompt")
	}
	return prompt, nil
}
