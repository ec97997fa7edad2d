// Package recorder writes and replays JSONL transcripts of codexrun turns.
//
// A transcript starts with a [Header] line followed by one [Entry] per
// event, each holding the event in codex's wire form. Paths ending in ".zst"
// are zstd-compressed.
package recorder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/dmora/codexrun"
)

// Transcript format identifiers written in every header.
const (
	Format  = "codexrun"
	Version = "1"
)

// CompressedExt marks transcript paths that are zstd-compressed.
const CompressedExt = ".zst"

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// maxLine bounds a single transcript line on replay.
const maxLine = 16 * 1024 * 1024

// Header is the first line of a transcript.
type Header struct {
	Format    string `json:"format"`
	Version   string `json:"version"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
}

// Entry is one recorded event.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Event     codexrun.Event `json:"event"`
}

// Recorder appends events to a transcript. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	file   *os.File
	zw     *zstd.Encoder
	enc    *json.Encoder
	header Header
	count  int64
	err    error
	closed bool
}

// Create creates (or truncates) a transcript file at path and writes its
// header. Paths ending in ".zst" are compressed.
func Create(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("recorder: create %q: %w", path, err)
	}
	r, err := newRecorder(f, strings.HasSuffix(path, CompressedExt))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.file = f
	return r, nil
}

// NewWriter writes a transcript to w. The caller owns w; Close flushes but
// does not close it.
func NewWriter(w io.Writer, compress bool) (*Recorder, error) {
	return newRecorder(w, compress)
}

func newRecorder(w io.Writer, compress bool) (*Recorder, error) {
	r := &Recorder{
		header: Header{
			Format:    Format,
			Version:   Version,
			ID:        uuid.NewString(),
			Timestamp: timestamp(),
		},
	}
	if compress {
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("recorder: zstd writer: %w", err)
		}
		r.zw = zw
		w = zw
	}
	r.enc = json.NewEncoder(w)
	r.enc.SetEscapeHTML(false)
	if err := r.writeHeader(); err != nil {
		if r.zw != nil {
			_ = r.zw.Close()
		}
		return nil, err
	}
	return r, nil
}

func (r *Recorder) writeHeader() error {
	if err := r.enc.Encode(r.header); err != nil {
		return fmt.Errorf("recorder: write header: %w", err)
	}
	if r.zw != nil {
		if err := r.zw.Flush(); err != nil {
			return fmt.Errorf("recorder: flush header: %w", err)
		}
	}
	return nil
}

// ID returns the transcript id written in the header.
func (r *Recorder) ID() string {
	return r.header.ID
}

// Count returns the number of events recorded so far.
func (r *Recorder) Count() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Record appends ev to the transcript.
func (r *Recorder) Record(ev codexrun.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.New("recorder: closed")
	}
	if err := r.enc.Encode(Entry{Timestamp: timestamp(), Event: ev}); err != nil {
		return r.fail(fmt.Errorf("recorder: encode %s: %w", ev.Type, err))
	}
	if r.zw != nil {
		if err := r.zw.Flush(); err != nil {
			return r.fail(fmt.Errorf("recorder: flush: %w", err))
		}
	}
	r.count++
	return nil
}

// fail remembers the first write error. Callers hold mu.
func (r *Recorder) fail(err error) error {
	if r.err == nil {
		r.err = err
	}
	return err
}

// Err returns the first error hit while recording, including errors
// swallowed by Tee.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close flushes the transcript and closes the file opened by Create.
// Calling it more than once returns nil.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	var errs []error
	if r.zw != nil {
		errs = append(errs, r.zw.Close())
	}
	if r.file != nil {
		errs = append(errs, r.file.Close())
	}
	return errors.Join(errs...)
}

// Tee records every event read from ch and forwards it on the returned
// channel, which is closed when ch closes or ctx is cancelled. Recording
// errors do not interrupt the stream; check Err afterwards.
func Tee(ctx context.Context, r *Recorder, ch <-chan codexrun.Event) <-chan codexrun.Event {
	out := make(chan codexrun.Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				_ = r.Record(ev)
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Transcript is a replayed recording.
type Transcript struct {
	Header Header
	Events []codexrun.Event
}

// ReadFile replays the transcript at path. Compression is detected from the
// content, not the file name.
func ReadFile(path string) (*Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("recorder: open %q: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read replays a transcript from src.
func Read(src io.Reader) (*Transcript, error) {
	br := bufio.NewReader(src)
	magic, _ := br.Peek(len(zstdMagic))
	var in io.Reader = br
	if bytes.Equal(magic, zstdMagic) {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("recorder: zstd reader: %w", err)
		}
		defer zr.Close()
		in = zr
	}

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("recorder: read header: %w", err)
		}
		return nil, errors.New("recorder: empty transcript")
	}
	var t Transcript
	if err := json.Unmarshal(sc.Bytes(), &t.Header); err != nil {
		return nil, fmt.Errorf("recorder: decode header: %w", err)
	}
	if t.Header.Format != Format {
		return nil, fmt.Errorf("recorder: unknown transcript format %q", t.Header.Format)
	}

	for line := 2; sc.Scan(); line++ {
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("recorder: line %d: %w", line, err)
		}
		t.Events = append(t.Events, e.Event)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("recorder: read: %w", err)
	}
	return &t, nil
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
