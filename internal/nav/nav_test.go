package nav

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgnsrekt/voicedeck/internal/errs"
)

func newEngine(inputs ...string) (*Engine, *Script, *bytes.Buffer) {
	script := NewScript(inputs...)
	var out bytes.Buffer
	return New(script, &out), script, &out
}

type failingTerminal struct{}

func (failingTerminal) ReadKey() (string, error)  { return "", errors.New("device gone") }
func (failingTerminal) ReadLine() (string, error) { return "", errors.New("device gone") }

func TestReadKey(t *testing.T) {
	tests := []struct {
		name   string
		inputs []string
		want   Result
	}{
		{"valid key", []string{"2"}, Result{Signal: Value, Value: "2"}},
		{"uppercase letter", []string{"D"}, Result{Signal: Value, Value: "d"}},
		{"invalid then valid", []string{"9", "x", "1"}, Result{Signal: Value, Value: "1"}},
		{"back", []string{"b"}, Result{Signal: Back}},
		{"escape", []string{KeyEsc}, Result{Signal: Back}},
		{"quit", []string{"q"}, Result{Signal: Quit}},
		{"quit uppercase", []string{"Q"}, Result{Signal: Quit}},
		{"ctrl-c", []string{KeyCtrlC}, Result{Signal: Quit}},
		{"eof", nil, Result{Signal: Quit}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, _ := newEngine(tt.inputs...)
			got, err := e.Ask(Prompt{Kind: KindKey, Label: "Choose", Keys: []string{"1", "2", "d"}})
			if err != nil {
				t.Fatalf("Read() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Read() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestReadText(t *testing.T) {
	tests := []struct {
		name   string
		inputs []string
		want   Result
	}{
		{"plain", []string{"  hello world  "}, Result{Signal: Value, Value: "hello world"}},
		{"back", []string{"b"}, Result{Signal: Back}},
		{"quit", []string{" q "}, Result{Signal: Quit}},
		{"escape key", []string{KeyEsc}, Result{Signal: Back}},
		{"longer text starting with q", []string{"quiet please"}, Result{Signal: Value, Value: "quiet please"}},
		{"bare b word", []string{"be"}, Result{Signal: Value, Value: "be"}},
		{"escaped q", []string{`\q`}, Result{Signal: Value, Value: "q"}},
		{"escaped backslash", []string{`\\x`}, Result{Signal: Value, Value: `\x`}},
		{"eof", nil, Result{Signal: Back}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, _ := newEngine(tt.inputs...)
			got, err := e.Ask(Prompt{Kind: KindText, Label: "Text"})
			if err != nil {
				t.Fatalf("Read() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Read() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestReadText_ValidatorReprompts(t *testing.T) {
	e, script, out := newEngine("   ", "this is far too long", "ok")

	got, err := e.Ask(Prompt{
		Kind:      KindText,
		Label:     "Text",
		Validator: All(NonEmpty("text"), MaxLength("text", 5)),
	})
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if got.Value != "ok" {
		t.Errorf("Value = %q, want ok", got.Value)
	}
	if script.Reads() != 3 {
		t.Errorf("reads = %d, want 3", script.Reads())
	}
	if !strings.Contains(out.String(), "must not be empty") || !strings.Contains(out.String(), "too long") {
		t.Errorf("validation messages missing from output:\n%s", out.String())
	}
}

func TestReadText_TxtFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "my script.txt")
	os.WriteFile(path, []byte("\nLong text from a file.\n"), 0o644)

	dragged := "'" + path + "'"
	e, _, _ := newEngine(dragged)
	got, err := e.Ask(Prompt{Kind: KindText, Label: "Text", AllowFile: true})
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if got.Value != "Long text from a file." {
		t.Errorf("Value = %q", got.Value)
	}

	// Without AllowFile the path is literal text.
	e, _, _ = newEngine(path)
	got, _ = e.Ask(Prompt{Kind: KindText, Label: "Text"})
	if got.Value != path {
		t.Errorf("Value = %q, want literal path", got.Value)
	}

	// A path that does not exist is literal text too.
	missing := filepath.Join(dir, "missing.txt")
	e, _, _ = newEngine(missing)
	got, _ = e.Ask(Prompt{Kind: KindText, Label: "Text", AllowFile: true})
	if got.Value != missing {
		t.Errorf("Value = %q, want literal path", got.Value)
	}
}

func TestReadText_UnreadableFileReprompts(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	os.WriteFile(empty, nil, 0o644)

	e, script, out := newEngine(empty, "typed instead")
	got, err := e.Ask(Prompt{Kind: KindText, Label: "Text", AllowFile: true})
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if got.Value != "typed instead" {
		t.Errorf("Value = %q", got.Value)
	}
	if script.Reads() != 2 {
		t.Errorf("reads = %d, want 2", script.Reads())
	}
	if !strings.Contains(out.String(), "empty.txt is empty") {
		t.Errorf("expected file error in output:\n%s", out.String())
	}
}

func TestTerminalFailureIsFatal(t *testing.T) {
	e := New(failingTerminal{}, io.Discard)

	for _, kind := range []Kind{KindKey, KindText} {
		_, err := e.Ask(Prompt{Kind: kind, Label: "x", Keys: []string{"1"}})
		if !errors.Is(err, ErrTerminal) {
			t.Errorf("kind %d: expected ErrTerminal, got %v", kind, err)
		}
	}
}

func TestStack(t *testing.T) {
	e, _, _ := newEngine("1", "2")

	outer := e.PushPrompt(Prompt{Kind: KindKey, Label: "Mode", Keys: []string{"1"}})
	inner := e.PushPrompt(Prompt{Kind: KindKey, Label: "Speaker", Keys: []string{"2"}})

	if e.Depth() != 2 {
		t.Fatalf("Depth() = %d, want 2", e.Depth())
	}
	if inner.Frame().Parent() != outer.Frame() {
		t.Error("inner frame should point at outer frame")
	}
	if trail := strings.Join(e.Trail(), " > "); trail != "Mode > Speaker" {
		t.Errorf("Trail() = %q", trail)
	}

	if _, err := outer.Read(); !errors.Is(err, ErrNotActive) {
		t.Errorf("reading a buried frame: expected ErrNotActive, got %v", err)
	}

	inner.Close()
	inner.Close()
	if e.Depth() != 1 {
		t.Fatalf("Depth() after close = %d, want 1", e.Depth())
	}
	if _, err := inner.Read(); !errors.Is(err, ErrNotActive) {
		t.Errorf("reading a closed handle: expected ErrNotActive, got %v", err)
	}

	got, err := outer.Read()
	if err != nil || got.Value != "1" {
		t.Errorf("outer.Read() = %+v, %v", got, err)
	}
	e.Pop()
	e.Pop()
	if e.Depth() != 0 || e.Top() != nil {
		t.Error("stack should be empty")
	}
}

func TestCleanPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		in   string
		want string
	}{
		{"/tmp/a.wav", "/tmp/a.wav"},
		{"  '/tmp/my file.wav'  ", "/tmp/my file.wav"},
		{`"/tmp/x.wav"`, "/tmp/x.wav"},
		{`/tmp/my\ file.wav`, "/tmp/my file.wav"},
		{"~/voices/a.wav", filepath.Join(home, "voices/a.wav")},
		{"'", "'"},
	}
	for _, tt := range tests {
		got, err := CleanPath(tt.in)
		if err != nil {
			t.Errorf("CleanPath(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("CleanPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "a\nb", strings.Repeat("x", 301)} {
		if _, err := CleanPath(bad); !errs.IsValidation(err) {
			t.Errorf("CleanPath(%q) expected ValidationError, got %v", bad, err)
		}
	}
}

func TestExistingFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.wav")
	os.WriteFile(file, []byte("x"), 0o644)

	v := ExistingFile("audio")
	if err := v.Validate(file); err != nil {
		t.Errorf("Validate(file) error: %v", err)
	}
	if err := v.Validate(dir); !errs.IsValidation(err) {
		t.Errorf("Validate(dir) expected ValidationError, got %v", err)
	}
	if err := v.Validate(filepath.Join(dir, "nope.wav")); !errs.IsValidation(err) {
		t.Errorf("Validate(missing) expected ValidationError, got %v", err)
	}
}

func TestLineTerminal(t *testing.T) {
	term := NewLineTerminal(strings.NewReader("\n  3 extra\nsome text\r\nlast"))

	key, err := term.ReadKey()
	if err != nil || key != "3" {
		t.Errorf("ReadKey() = %q, %v", key, err)
	}
	line, err := term.ReadLine()
	if err != nil || line != "some text" {
		t.Errorf("ReadLine() = %q, %v", line, err)
	}
	line, err = term.ReadLine()
	if err != nil || line != "last" {
		t.Errorf("ReadLine() = %q, %v", line, err)
	}
	if _, err := term.ReadLine(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}
