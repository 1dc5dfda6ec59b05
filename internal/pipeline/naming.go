package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// Snippet turns text into a filename fragment: characters other than
// letters, digits, '_', '-' and spaces are dropped, the result is cut to max
// runes and spaces become underscores. Empty input yields "audio".
func Snippet(text string, max int) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || unicode.IsSpace(r) {
			if unicode.IsSpace(r) {
				r = ' '
			}
			b.WriteRune(r)
		}
	}

	s := []rune(b.String())
	if max > 0 && len(s) > max {
		s = s[:max]
	}
	out := strings.ReplaceAll(strings.TrimSpace(string(s)), " ", "_")
	if out == "" {
		return "audio"
	}
	return out
}

// OutputName is HH-MM-SS_<snippet>.<ext>.
func OutputName(t time.Time, text string, max int, ext string) string {
	return fmt.Sprintf("%s_%s.%s", t.Format("15-04-05"), Snippet(text, max), ext)
}

// uniquePath appends _1, _2, ... before the extension until the name is free.
func uniquePath(dir, name string) string {
	p := filepath.Join(dir, name)
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return p
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		p = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, i, ext))
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return p
		}
	}
}

// folderName makes a voice name safe to use as a directory.
func folderName(name string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || unicode.IsControl(r):
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if s == "" || s == "." || s == ".." {
		return "voice"
	}
	return s
}
