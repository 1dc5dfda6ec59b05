package nav

import (
	"bufio"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/x/term"
)

// Terminal is the input side of the user's terminal.
type Terminal interface {
	// ReadKey returns one keystroke. Esc is KeyEsc and Ctrl-C is KeyCtrlC.
	ReadKey() (string, error)
	// ReadLine returns one line without its terminator.
	ReadLine() (string, error)
}

// NewTerminal returns a raw-mode terminal when f is a TTY and a line-based
// one otherwise.
func NewTerminal(f *os.File) Terminal {
	if term.IsTerminal(f.Fd()) {
		return &TTY{fd: f.Fd(), r: bufio.NewReader(f)}
	}
	return NewLineTerminal(f)
}

// TTY reads single keystrokes in raw mode and lines in cooked mode.
type TTY struct {
	fd uintptr
	r  *bufio.Reader
}

// ReadKey switches the terminal to raw mode for exactly one keystroke.
// Escape sequences such as arrow keys are swallowed and reported as "".
func (t *TTY) ReadKey() (string, error) {
	state, err := term.MakeRaw(t.fd)
	if err != nil {
		return "", err
	}
	defer term.Restore(t.fd, state)

	b, err := t.r.ReadByte()
	if err != nil {
		return "", err
	}

	switch {
	case b == 0x1b:
		if t.r.Buffered() == 0 {
			return KeyEsc, nil
		}
		for t.r.Buffered() > 0 {
			if _, err := t.r.ReadByte(); err != nil {
				return "", err
			}
		}
		return "", nil
	case b == 0x03:
		return KeyCtrlC, nil
	case b == 0x04:
		return "", io.EOF
	case b < utf8.RuneSelf:
		return string(rune(b)), nil
	}

	if err := t.r.UnreadByte(); err != nil {
		return "", err
	}
	r, _, err := t.r.ReadRune()
	if err != nil {
		return "", err
	}
	return string(r), nil
}

// ReadLine reads a line in the terminal's normal mode.
func (t *TTY) ReadLine() (string, error) {
	return readLine(t.r)
}

// LineTerminal reads from a non-interactive source such as a pipe. A key is
// the first character of the next non-empty line.
type LineTerminal struct {
	r *bufio.Reader
}

// NewLineTerminal wraps r.
func NewLineTerminal(r io.Reader) *LineTerminal {
	return &LineTerminal{r: bufio.NewReader(r)}
}

func (t *LineTerminal) ReadKey() (string, error) {
	for {
		line, err := readLine(t.r)
		if err != nil {
			return "", err
		}
		if line = strings.TrimSpace(line); line != "" {
			r, _ := utf8.DecodeRuneInString(line)
			return string(r), nil
		}
	}
}

func (t *LineTerminal) ReadLine() (string, error) {
	return readLine(t.r)
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Script is a Terminal fed from a fixed list of inputs, one per read.
// It returns io.EOF once the inputs run out.
type Script struct {
	inputs []string
	reads  int
}

// NewScript creates a Script.
func NewScript(inputs ...string) *Script {
	return &Script{inputs: inputs}
}

func (s *Script) next() (string, error) {
	if len(s.inputs) == 0 {
		return "", io.EOF
	}
	in := s.inputs[0]
	s.inputs = s.inputs[1:]
	s.reads++
	return in, nil
}

func (s *Script) ReadKey() (string, error)  { return s.next() }
func (s *Script) ReadLine() (string, error) { return s.next() }

// Remaining returns the number of unread inputs.
func (s *Script) Remaining() int {
	return len(s.inputs)
}

// Reads returns the number of inputs consumed.
func (s *Script) Reads() int {
	return s.reads
}
