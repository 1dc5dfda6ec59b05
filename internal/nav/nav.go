// Package nav drives the interactive prompts. One prompt is active at a time;
// every prompt resolves to a value, a Back signal or a Quit signal.
package nav

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ErrTerminal wraps input failures the process cannot recover from.
var ErrTerminal = errors.New("terminal input failed")

// ErrNotActive is returned by Read on a handle that is not the top frame.
var ErrNotActive = errors.New("prompt is not the active frame")

// Reserved inputs.
const (
	KeyEsc   = "\x1b"
	KeyCtrlC = "\x03"
	keyBack  = "b"
	keyQuit  = "q"
	escape   = `\`
)

// Kind selects how a prompt reads input.
type Kind int

const (
	// KindKey resolves on a single keystroke.
	KindKey Kind = iota
	// KindText reads a line of free text.
	KindText
)

// Signal is the outcome class of a Read.
type Signal int

const (
	Value Signal = iota
	Back
	Quit
)

func (s Signal) String() string {
	switch s {
	case Back:
		return "back"
	case Quit:
		return "quit"
	default:
		return "value"
	}
}

// Result is what a prompt resolved to. Value is set only for Signal Value.
type Result struct {
	Signal Signal
	Value  string
}

// Validator checks free-text input before it is handed to the caller.
type Validator interface {
	Validate(s string) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(s string) error

func (f ValidatorFunc) Validate(s string) error { return f(s) }

// Prompt describes one question.
type Prompt struct {
	Kind  Kind
	Label string
	// Keys lists the accepted keystrokes of a KindKey prompt. Letters match
	// either case and are returned lowercase.
	Keys []string
	// Validator is optional and applies to KindText prompts.
	Validator Validator
	// AllowFile makes an existing .txt path typed or dragged into a KindText
	// prompt resolve to the file's contents.
	AllowFile bool
	// MaxFileSize bounds files loaded through AllowFile. Zero means 1 MiB.
	MaxFileSize int64
}

// Frame is one level of the prompt stack.
type Frame struct {
	Prompt Prompt
	parent *Frame
}

// Parent returns the enclosing frame, or nil at the root.
func (f *Frame) Parent() *Frame {
	return f.parent
}

// Styles controls how prompts are rendered.
type Styles struct {
	Label lipgloss.Style
	Hint  lipgloss.Style
	Error lipgloss.Style
	Echo  lipgloss.Style
}

// DefaultStyles matches the studio theme.
func DefaultStyles() Styles {
	return Styles{
		Label: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f")),
		Hint:  lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681")),
		Error: lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f87")),
		Echo:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5fd7ff")),
	}
}

// Engine owns the prompt stack.
type Engine struct {
	term   Terminal
	out    io.Writer
	styles Styles
	top    *Frame
	depth  int
}

// New creates an engine reading from term and rendering to out.
func New(term Terminal, out io.Writer) *Engine {
	return &Engine{term: term, out: out, styles: DefaultStyles()}
}

// SetStyles replaces the prompt styles.
func (e *Engine) SetStyles(s Styles) {
	e.styles = s
}

// Out is the writer prompts render to.
func (e *Engine) Out() io.Writer {
	return e.out
}

// Depth returns the number of frames on the stack.
func (e *Engine) Depth() int {
	return e.depth
}

// Top returns the active frame, or nil.
func (e *Engine) Top() *Frame {
	return e.top
}

// Trail returns the labels of the stack from the root down.
func (e *Engine) Trail() []string {
	var labels []string
	for f := e.top; f != nil; f = f.parent {
		labels = append(labels, f.Prompt.Label)
	}
	slices.Reverse(labels)
	return labels
}

// PushPrompt makes p the active frame.
func (e *Engine) PushPrompt(p Prompt) *Handle {
	e.top = &Frame{Prompt: p, parent: e.top}
	e.depth++
	return &Handle{engine: e, frame: e.top}
}

// Pop discards the active frame.
func (e *Engine) Pop() {
	if e.top == nil {
		return
	}
	e.top = e.top.parent
	e.depth--
}

// Ask pushes p, reads one result and pops.
func (e *Engine) Ask(p Prompt) (Result, error) {
	h := e.PushPrompt(p)
	defer h.Close()
	return h.Read()
}

// Handle is the caller's view of a pushed frame.
type Handle struct {
	engine *Engine
	frame  *Frame
	closed bool
}

// Frame returns the frame behind the handle.
func (h *Handle) Frame() *Frame {
	return h.frame
}

// Close pops the frame if it is still active. Safe to call twice.
func (h *Handle) Close() {
	if h.closed {
		return
	}
	h.closed = true
	if h.engine.top == h.frame {
		h.engine.Pop()
	}
}

// Read blocks until the prompt resolves. Invalid input re-prompts the same
// frame; only terminal failures are returned as errors.
func (h *Handle) Read() (Result, error) {
	if h.closed || h.engine.top != h.frame {
		return Result{}, ErrNotActive
	}
	if h.frame.Prompt.Kind == KindKey {
		return h.engine.readKey(h.frame.Prompt)
	}
	return h.engine.readText(h.frame.Prompt)
}

func (e *Engine) readKey(p Prompt) (Result, error) {
	hint := "b back, q quit"
	if len(p.Keys) > 0 {
		hint = strings.Join(p.Keys, "/") + ", " + hint
	}
	fmt.Fprintf(e.out, "%s %s ", e.styles.Label.Render(p.Label), e.styles.Hint.Render("["+hint+"]"))

	for {
		key, err := e.term.ReadKey()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(e.out)
			return Result{Signal: Quit}, nil
		}
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrTerminal, err)
		}

		switch k := strings.ToLower(key); {
		case key == KeyCtrlC || k == keyQuit:
			fmt.Fprintln(e.out)
			return Result{Signal: Quit}, nil
		case key == KeyEsc || k == keyBack:
			fmt.Fprintln(e.out)
			return Result{Signal: Back}, nil
		case slices.Contains(p.Keys, k) || slices.Contains(p.Keys, key):
			if !slices.Contains(p.Keys, key) {
				key = k
			}
			fmt.Fprintln(e.out, e.styles.Echo.Render(key))
			return Result{Signal: Value, Value: key}, nil
		}
	}
}

func (e *Engine) readText(p Prompt) (Result, error) {
	for {
		fmt.Fprintf(e.out, "%s %s ", e.styles.Label.Render(p.Label+":"), e.styles.Hint.Render("(b back, q quit)"))

		line, err := e.term.ReadLine()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(e.out)
			return Result{Signal: Back}, nil
		}
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrTerminal, err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case keyQuit, KeyCtrlC:
			return Result{Signal: Quit}, nil
		case keyBack, KeyEsc:
			return Result{Signal: Back}, nil
		}

		value, err := e.resolveText(p, line)
		if err == nil && p.Validator != nil {
			err = p.Validator.Validate(value)
		}
		if err != nil {
			fmt.Fprintln(e.out, e.styles.Error.Render("  "+err.Error()))
			continue
		}
		return Result{Signal: Value, Value: value}, nil
	}
}

// resolveText applies the escape prefix and the .txt file shortcut.
func (e *Engine) resolveText(p Prompt, line string) (string, error) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, escape) {
		return strings.TrimPrefix(trimmed, escape), nil
	}
	if !p.AllowFile {
		return trimmed, nil
	}

	path, err := CleanPath(trimmed)
	if err != nil || !strings.EqualFold(pathExt(path), ".txt") {
		return trimmed, nil
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return trimmed, nil
	}

	text, err := readTextFile(path, p.MaxFileSize)
	if err != nil {
		return "", err
	}
	fmt.Fprintln(e.out, e.styles.Hint.Render(fmt.Sprintf("  loaded %d characters from %s", len([]rune(text)), info.Name())))
	return text, nil
}
