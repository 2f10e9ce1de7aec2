package documents

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string {
	return &s
}

func TestParse(t *testing.T) {
	assert.Empty(t, Parse(nil))
	assert.Empty(t, Parse(ptr("")))
	assert.Equal(t, []string{"/uploads/a.pdf", "/uploads/b.pdf"}, Parse(ptr("/uploads/a.pdf\n/uploads/b.pdf\n")))
	assert.Equal(t, []string{"/uploads/a.pdf", "https://x.io/b"}, Parse(ptr("/uploads/a.pdf, https://x.io/b")))
	assert.Equal(t, []string{"a", "b", "c"}, Parse(ptr("a\r\nb,c")))
}

func TestJoin(t *testing.T) {
	assert.Nil(t, Join(nil))
	assert.Nil(t, Join([]string{}))

	blob := Join([]string{"a", "b"})
	require.NotNil(t, blob)
	assert.Equal(t, "a\nb", *blob)
	assert.Equal(t, []string{"a", "b"}, Parse(blob))
}

func TestRemove(t *testing.T) {
	urls := []string{"a", "b", "a"}

	remaining, found := Remove(urls, " a ")
	assert.True(t, found)
	assert.Equal(t, []string{"b"}, remaining)
	assert.Equal(t, []string{"a", "b", "a"}, urls)

	remaining, found = Remove(urls, "c")
	assert.False(t, found)
	assert.Equal(t, urls, remaining)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report_2023.pdf", SanitizeFilename("report 2023.pdf"))
	assert.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "evil.txt", SanitizeFilename(`C:\Users\x\evil.txt`))
	assert.Equal(t, "file", SanitizeFilename("../"))
	assert.Equal(t, "hidden", SanitizeFilename(".hidden"))
}

func TestAllowedExtension(t *testing.T) {
	for _, name := range []string{"a.pdf", "b.DOCX", "c.csv", "d.jpeg"} {
		assert.True(t, AllowedExtension(name), name)
	}
	for _, name := range []string{"a.exe", "b", "c.pdf.sh", ".pdf.js"} {
		assert.False(t, AllowedExtension(name), name)
	}
}

func TestStoredName(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)
	name := StoredName(now, "my report.pdf")

	assert.True(t, strings.HasPrefix(name, "20240309_140506_"), name)
	assert.True(t, strings.HasSuffix(name, "_my_report.pdf"), name)
	assert.True(t, ValidStoredName(name))
	assert.NotEqual(t, name, StoredName(now, "my report.pdf"))
}

func TestStoredNameFromURL(t *testing.T) {
	name, ok := StoredNameFromURL("/uploads/20240309_140506_ab12cd34_a.pdf")
	assert.True(t, ok)
	assert.Equal(t, "20240309_140506_ab12cd34_a.pdf", name)

	for _, url := range []string{"https://example.com/a.pdf", "/uploads/", "/uploads/../secret", "/uploads/a/b.pdf"} {
		_, ok := StoredNameFromURL(url)
		assert.False(t, ok, url)
	}
}
