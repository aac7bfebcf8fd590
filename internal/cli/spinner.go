package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/x/ansi"
)

// spinnerFrames are drawn every spinnerInterval.
var spinnerFrames = [...]string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// Spinner animates a line while a blocking layout or render runs. After a
// second it also shows the elapsed time, since large graphs can take a while
// in dot. It stops with its context.
type Spinner struct {
	w     io.Writer
	ctx   context.Context
	stop  context.CancelFunc
	done  chan struct{}
	start time.Time

	mu      sync.Mutex
	message string
	width   int // visible width of the last frame, for clearing
	once    sync.Once
}

// newSpinner creates a spinner writing to w that stops with ctx.
func newSpinner(ctx context.Context, w io.Writer, message string) *Spinner {
	sctx, stop := context.WithCancel(ctx)
	return &Spinner{w: w, ctx: sctx, stop: stop, done: make(chan struct{}), message: message}
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.start = time.Now()
	go s.run()
}

func (s *Spinner) run() {
	defer close(s.done)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-s.ctx.Done():
			s.clear()
			return
		case <-ticker.C:
			s.draw(spinnerFrames[frame%len(spinnerFrames)])
		}
	}
}

func (s *Spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := styleIconSpinner.Render(frame) + " " + StyleDim.Render(s.message)
	if elapsed := time.Since(s.start); elapsed >= time.Second {
		line += StyleDim.Render(fmt.Sprintf(" (%s)", elapsed.Round(100*time.Millisecond)))
	}
	pad := max(s.width-ansi.StringWidth(line), 0)
	fmt.Fprintf(s.w, "\r%s%*s", line, pad, "")
	s.width = ansi.StringWidth(line)
}

func (s *Spinner) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(s.w, "\r%*s\r", s.width, "")
	}
}

// Stop stops the animation and clears the line. Safe to call repeatedly.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		s.stop()
		<-s.done
	})
}

// StopWithSuccess stops the spinner and prints a success line.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess(s.w, "%s", message)
}

// StopWithError stops the spinner and prints an error line.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError(s.w, "%s", message)
}

// Cancelled reports whether the spinner has stopped.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil
}
