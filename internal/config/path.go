package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath turns a user-typed path into one the OS accepts. Surrounding
// whitespace and one pair of matching quotes (left by pasting a path from a
// file manager) are removed, then a leading ~ and $VARS are expanded.
func ExpandPath(path string) string {
	path = strings.TrimSpace(path)
	if len(path) >= 2 {
		if q := path[0]; (q == '"' || q == '\'') && path[len(path)-1] == q {
			path = path[1 : len(path)-1]
		}
	}
	if path == "" {
		return ""
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return os.ExpandEnv(path)
}
