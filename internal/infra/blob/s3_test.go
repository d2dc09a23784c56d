package blob

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		filename string
		suffix   string
	}{
		{name: "plain", prefix: "projects/abc", filename: "report.pdf", suffix: "-report.pdf"},
		{name: "trailing slash", prefix: "projects/abc/", filename: "report.pdf", suffix: "-report.pdf"},
		{name: "path traversal", prefix: "projects/abc", filename: "../../etc/passwd", suffix: "-passwd"},
		{name: "windows path", prefix: "projects/abc", filename: `C:\Users\me\slides v2.pptx`, suffix: "-slides_v2.pptx"},
		{name: "empty", prefix: "projects/abc", filename: "", suffix: "-file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := ObjectKey(tt.prefix, tt.filename)
			assert.True(t, strings.HasPrefix(key, "projects/abc/"), key)
			assert.True(t, strings.HasSuffix(key, tt.suffix), key)
			assert.NotContains(t, strings.TrimPrefix(key, "projects/abc/"), "/")
		})
	}
}

func TestDetectMIME(t *testing.T) {
	pdf := bytes.NewReader([]byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n"))
	mime, err := DetectMIME(pdf)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mime)

	// reader is rewound
	pos, err := pdf.Seek(0, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos)

	txt, err := DetectMIME(bytes.NewReader([]byte("plain notes")))
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", txt)
}
