package crawler

import (
	"path/filepath"
	"strings"
)

// skippedExtensions are paths that never hold HTML pages.
var skippedExtensions = map[string]bool{
	".pdf": true, ".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".svg": true, ".ico": true, ".zip": true, ".gz": true,
	".mp3": true, ".mp4": true, ".mov": true, ".avi": true, ".webm": true,
	".css": true, ".js": true, ".json": true, ".xml": true, ".txt": true,
	".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".ppt": true,
	".pptx": true, ".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
}

// pathFilter decides which discovered paths are crawled.
//
// A path matching any ignore pattern is skipped. When follow patterns are
// set, a path must match at least one of them.
type pathFilter struct {
	ignore []string
	follow []string
}

func (f pathFilter) allows(p string) bool {
	if p == "" {
		p = "/"
	}
	if skippedExtensions[strings.ToLower(filepath.Ext(p))] {
		return false
	}
	for _, pattern := range f.ignore {
		if matchPattern(pattern, p) {
			return false
		}
	}
	if len(f.follow) == 0 {
		return true
	}
	for _, pattern := range f.follow {
		if matchPattern(pattern, p) {
			return true
		}
	}
	return false
}

// matchPattern matches a URL path against a glob pattern.
//   - "/blog/*" matches "/blog" and everything below it
//   - "*.pdf" matches the extension anywhere
//   - other patterns use filepath.Match on the path, then on its last
//     segment when the pattern has no slash
func matchPattern(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") && !strings.ContainsAny(ext, "*?[") {
		return strings.HasSuffix(p, ext)
	}
	if matched, err := filepath.Match(pattern, p); err == nil && matched {
		return true
	}
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(p))
		return err == nil && matched
	}
	return false
}
