package voices

import (
	"os"
	"path/filepath"
	"strings"
)

// ImportLegacy adopts flat <name>.wav + <name>.txt pairs found directly in
// dir. Names already in the library are skipped. Returns the number imported.
func (s *Store) ImportLegacy(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	known := make(map[string]bool)
	for p := range s.List() {
		known[strings.ToLower(p.Name)] = true
	}

	imported := 0
	for _, e := range entries {
		if e.IsDir() || strings.ToLower(filepath.Ext(e.Name())) != ".wav" {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if known[strings.ToLower(name)] {
			continue
		}

		transcript, err := os.ReadFile(filepath.Join(dir, name+".txt"))
		if err != nil {
			continue
		}

		if _, err := s.Enroll(name, filepath.Join(dir, e.Name()), string(transcript)); err != nil {
			s.logger.Warn("skipping legacy voice", "name", name, "error", err)
			continue
		}
		known[strings.ToLower(name)] = true
		imported++
	}

	if imported > 0 {
		s.logger.Info("imported legacy voices", "count", imported, "dir", dir)
	}
	return imported, nil
}
