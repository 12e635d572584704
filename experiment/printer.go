package experiment

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gosuri/uilive"
)

// TerminalPrinter refreshes one terminal line per StatusLine in place
type TerminalPrinter struct {
	outputs       []*StatusLine
	ctx           context.Context
	printerCtx    context.Context
	printerCancel context.CancelFunc
	frequency     time.Duration
	done          chan struct{}

	writer  *uilive.Writer
	writers []io.Writer
}

func NewTerminalPrinter(ctx context.Context, outputs []*StatusLine, frequency time.Duration) *TerminalPrinter {
	return newTerminalPrinter(ctx, outputs, frequency, nil)
}

func newTerminalPrinter(ctx context.Context, outputs []*StatusLine, frequency time.Duration, out io.Writer) *TerminalPrinter {
	printerCtx, cancel := context.WithCancel(ctx)
	writer := uilive.New()
	if out != nil {
		writer.Out = out
	}
	writers := make([]io.Writer, 0, len(outputs))
	for i := 0; i < len(outputs)-1; i++ {
		writers = append(writers, writer.Newline())
	}

	return &TerminalPrinter{
		outputs:       outputs,
		ctx:           ctx,
		printerCtx:    printerCtx,
		printerCancel: cancel,
		frequency:     frequency,
		done:          make(chan struct{}),

		writer:  writer,
		writers: writers,
	}
}

func (p *TerminalPrinter) Start() {
	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.frequency)
		defer ticker.Stop()
		for {
			select {
			case <-p.printerCtx.Done():
				p.print()
				return
			case <-ticker.C:
				p.print()
			}
		}
	}()
}

// Stop prints the last status and waits for the printer to exit
func (p *TerminalPrinter) Stop() {
	p.printerCancel()
	<-p.done
}

func (p *TerminalPrinter) print() {
	for i, output := range p.outputs {
		if !output.Running() && output.Get() == "" {
			continue
		}
		s := output.Get()
		if i == 0 {
			fmt.Fprint(p.writer, s+"\n")
		} else {
			fmt.Fprint(p.writers[i-1], s+"\n")
		}
	}
	p.writer.Flush()
}

// StatusLine is the latest printable status of a running experiment
type StatusLine struct {
	mu        sync.Mutex
	printable string
	running   bool
}

func NewStatusLine() *StatusLine {
	return &StatusLine{}
}

// Set the output string (blocking)
func (s *StatusLine) Set(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.printable = line
}

// Get the output string (blocking)
func (s *StatusLine) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.printable
}

func (s *StatusLine) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
}

func (s *StatusLine) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

func (s *StatusLine) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
