package documents

import (
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	URLPrefix = "/uploads/"

	separator       = "\n"
	legacySeparator = ","

	timestampLayout = "20060102_150405"
)

var AllowedExtensions = []string{"pdf", "doc", "docx", "xls", "xlsx", "txt", "csv", "png", "jpg", "jpeg", "gif"}

// Parse splits a linked docs blob into urls. Both newline and the legacy comma separator
// are accepted.
func Parse(blob *string) []string {
	if blob == nil {
		return []string{}
	}

	fields := strings.FieldsFunc(*blob, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})

	urls := make([]string, 0, len(fields))
	for _, field := range fields {
		if url := strings.TrimSpace(field); url != "" {
			urls = append(urls, url)
		}
	}
	return urls
}

// Join is the inverse of Parse and always writes the canonical separator. An empty list
// is stored as null.
func Join(urls []string) *string {
	if len(urls) == 0 {
		return nil
	}
	blob := strings.Join(urls, separator)
	return &blob
}

// Remove drops every occurrence of url. The second return value is false if the url was not present.
func Remove(urls []string, url string) ([]string, bool) {
	url = strings.TrimSpace(url)
	remaining := slices.DeleteFunc(slices.Clone(urls), func(u string) bool { return u == url })
	return remaining, len(remaining) != len(urls)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeFilename reduces a client supplied filename to a safe basename.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

func Extension(name string) string {
	ext := filepath.Ext(name)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func AllowedExtension(name string) bool {
	return slices.Contains(AllowedExtensions, Extension(name))
}

// StoredName builds the name a file is stored under. The timestamp keeps uploads sorted
// and the nonce keeps two uploads within the same second from colliding.
func StoredName(now time.Time, original string) string {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return now.UTC().Format(timestampLayout) + "_" + nonce + "_" + SanitizeFilename(original)
}

func URL(storedName string) string {
	return URLPrefix + storedName
}

// ValidStoredName rejects names that could escape the uploads directory.
func ValidStoredName(name string) bool {
	if name == "" || name == "." || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

// StoredNameFromURL returns the stored name for urls that point at a managed upload.
func StoredNameFromURL(url string) (string, bool) {
	name, ok := strings.CutPrefix(strings.TrimSpace(url), URLPrefix)
	if !ok || !ValidStoredName(name) {
		return "", false
	}
	return name, true
}
