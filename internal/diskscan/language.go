package diskscan

var languageMap = map[string]string{
	".go": "go",

	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".ts":  "typescript",
	".tsx": "typescript",

	".py":  "python",
	".pyw": "python",
	".pyi": "python",

	"dockerfile": "dockerfile",
	"makefile":   "makefile",
}

var contentTypeMap = map[string]ContentType{
	"go":         ContentTypeCode,
	"javascript": ContentTypeCode,
	"typescript": ContentTypeCode,
	"python":     ContentTypeCode,

	"markdown": ContentTypeMarkdown,
	"rst":      ContentTypeMarkdown,

	"text": ContentTypeText,

	"json":       ContentTypeConfig,
	"yaml":       ContentTypeConfig,
	"toml":       ContentTypeConfig,
	"xml":        ContentTypeConfig,
	"ini":        ContentTypeConfig,
	"dockerfile": ContentTypeConfig,
	"makefile":   ContentTypeConfig,
}

var extensionContentType = map[string]ContentType{
	".md":       ContentTypeMarkdown,
	".mdx":      ContentTypeMarkdown,
	".markdown": ContentTypeMarkdown,
	".rst":      ContentTypeMarkdown,
	".txt":      ContentTypeText,
	".json":     ContentTypeConfig,
	".yaml":     ContentTypeConfig,
	".yml":      ContentTypeConfig,
	".toml":     ContentTypeConfig,
	".xml":      ContentTypeConfig,
	".ini":      ContentTypeConfig,
}

// DetectLanguage maps a file path to the language name the parser
// registry expects, checking exact basenames (Dockerfile, Makefile)
// before extensions. Returns "" when nothing matches.
func DetectLanguage(path string) string {
	base := baseName(path)
	if lang, ok := languageMap[lowerASCII(base)]; ok {
		return lang
	}
	if lang, ok := languageMap[extension(path)]; ok {
		return lang
	}
	return ""
}

// DetectContentType classifies a file by its detected language (falls
// back to extension, then plain text).
func DetectContentType(language, path string) ContentType {
	if ct, ok := contentTypeMap[language]; ok {
		return ct
	}
	if ct, ok := extensionContentType[extension(path)]; ok {
		return ct
	}
	return ContentTypeText
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}

func extension(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return lowerASCII(path[i:])
		}
		if path[i] == '/' || path[i] == '\\' {
			break
		}
	}
	return ""
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// IsBinaryContent reports whether the first 512 bytes of content
// contain a null byte, the same heuristic file(1) and git use.
func IsBinaryContent(content []byte) bool {
	checkLen := 512
	if len(content) < checkLen {
		checkLen = len(content)
	}
	for i := 0; i < checkLen; i++ {
		if content[i] == 0 {
			return true
		}
	}
	return false
}
