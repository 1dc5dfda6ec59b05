package nav

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgnsrekt/voicedeck/internal/errs"
)

const (
	maxPathLen         = 300
	defaultMaxFileSize = 1 << 20
)

// CleanPath normalizes a path typed or dragged into the terminal: matching
// surrounding quotes are removed, escaped spaces are unescaped and a leading
// ~ is expanded.
func CleanPath(input string) (string, error) {
	p := strings.TrimSpace(input)
	if strings.ContainsAny(p, "\r\n") {
		return "", errs.Invalid("path", "must be a single line")
	}
	if len(p) > maxPathLen {
		return "", errs.Invalid("path", "longer than %d characters", maxPathLen)
	}

	if len(p) > 1 && (p[0] == '\'' || p[0] == '"') && p[len(p)-1] == p[0] {
		p = p[1 : len(p)-1]
	}
	p = strings.ReplaceAll(p, `\ `, " ")

	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if p == "" {
		return "", errs.Invalid("path", "must not be empty")
	}
	return p, nil
}

func pathExt(p string) string {
	return filepath.Ext(p)
}

func readTextFile(path string, limit int64) (string, error) {
	if limit <= 0 {
		limit = defaultMaxFileSize
	}
	f, err := os.Open(path)
	if err != nil {
		return "", errs.Invalid("file", "cannot open %s: %v", filepath.Base(path), err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return "", errs.Invalid("file", "cannot read %s: %v", filepath.Base(path), err)
	}
	if int64(len(data)) > limit {
		return "", errs.Invalid("file", "%s is larger than %d bytes", filepath.Base(path), limit)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errs.Invalid("file", "%s is empty", filepath.Base(path))
	}
	return text, nil
}
