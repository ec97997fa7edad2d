// Package codexrun drives the codex CLI through its JSONL exec protocol.
//
// Each turn spawns one "codex exec --experimental-json" process, writes the
// prompt to its stdin and parses every stdout line into an [Event]. A turn is
// consumed either as a live stream ([Thread.RunStreamed]) or aggregated into
// a [Turn] ([Thread.Run]).
//
// # Core Types
//
//   - [Client]: shares an [Engine] and connection settings across threads
//   - [Thread]: a session that learns its id from the first thread.started
//   - [StreamedTurn]: a live turn with an event channel
//   - [Event] and [Item]: closed unions decoded from codex's stdout
//   - [Engine] and [LineStream]: the process boundary, implemented by
//     engine/cli and substituted in tests
//
// # Quick Start
//
//	client := codex.NewClient(codex.Options{})
//	thread := client.StartThread(codexrun.ThreadOptions{
//	    SandboxMode: codexrun.SandboxReadOnly,
//	})
//	turn, err := thread.Run(ctx, codexrun.Text("Summarize this repo"), codexrun.TurnOptions{})
//	if err != nil { log.Fatal(err) }
//	fmt.Println(turn.FinalResponse)
//
// The engine/cli/codex package wires the CLI engine and codex backend
// together behind [NewClient].
package codexrun
