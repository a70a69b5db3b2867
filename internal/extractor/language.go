package extractor

import (
	"path/filepath"
	"strings"
)

var languageByExtension = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".kt":    "kotlin",
	".rb":    "ruby",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".php":   "php",
	".swift": "swift",
	".scala": "scala",
	".sh":    "shell",
	".bash":  "shell",
	".sql":   "sql",
	".html":  "html",
	".css":   "css",
	".scss":  "css",
	".md":    "markdown",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".toml":  "toml",
	".proto": "protobuf",
	".tf":    "terraform",
}

var languageByFilename = map[string]string{
	"Dockerfile": "dockerfile",
	"Makefile":   "makefile",
	"go.mod":     "gomod",
	"go.sum":     "gomod",
}

// LanguageHint derives a language tag from the file path. Unknown
// extensions map to "unknown" rather than failing.
func LanguageHint(path string) string {
	base := filepath.Base(path)
	if lang, ok := languageByFilename[base]; ok {
		return lang
	}
	ext := strings.ToLower(filepath.Ext(base))
	if lang, ok := languageByExtension[ext]; ok {
		return lang
	}
	return "unknown"
}
