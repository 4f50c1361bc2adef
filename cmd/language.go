package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/grit-lang/gritql/lang"
)

// resolveLanguage looks up the --language flag against lang.Default,
// the way teacher's languages.Registry.GetLanguage resolves a
// language name for an analyzer.
func resolveLanguage(name string) (lang.Language, error) {
	l, ok := lang.Default.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown language %q", name)
	}
	return l, nil
}

// walkFiles discovers every file under root (or root itself, if it is
// a plain file) whose extension matches one of language's glob
// patterns, grounded on teacher's internal/files.FindSourceFiles walk
// generalized from a hardcoded Go/Python pair to any registered
// lang.Language's Extensions().
func walkFiles(root string, language lang.Language) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var out []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			base := info.Name()
			if base == "vendor" || base == ".git" || (strings.HasPrefix(base, ".") && path != root) {
				return filepath.SkipDir
			}
			return nil
		}
		base := filepath.Base(path)
		for _, pattern := range language.Extensions() {
			if ok, _ := doublestar.Match(pattern, base); ok {
				out = append(out, path)
				return nil
			}
		}
		return nil
	})
	return out, err
}
