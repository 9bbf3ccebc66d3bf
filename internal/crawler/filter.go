package crawler

import (
	"net/url"
	"path/filepath"
	"strings"
)

// ignored reports whether the path of rawURL matches one of patterns.
func ignored(patterns []string, rawURL string) bool {
	if len(patterns) == 0 {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	for _, pattern := range patterns {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern checks if a URL path matches a glob pattern.
// Supported forms:
//   - "/account/*" matches "/account" and everything below it
//   - "/cart*" matches "/cart", "/cart/add" and "/cartitems"
//   - "*.pdf" matches any path ending in ".pdf"
//   - any other filepath.Match pattern
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		ext := strings.TrimPrefix(pattern, "*")
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	// A single trailing star also spans path separators.
	if strings.HasSuffix(pattern, "*") && strings.Count(pattern, "*") == 1 && !strings.ContainsAny(pattern, "?[") {
		if strings.HasPrefix(path, strings.TrimSuffix(pattern, "*")) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}
	}
	return false
}
