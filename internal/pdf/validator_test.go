package pdf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdferrors "github.com/a3tai/mcp-pdf-renewal/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-renewal/internal/testutil"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestValidator_ValidateFile(t *testing.T) {
	dir := t.TempDir()
	valid := writeFile(t, dir, "valid.pdf", testutil.TextPages(t, "hello"))
	prefixed := writeFile(t, dir, "prefixed.pdf", append([]byte("junk\n"), testutil.TextPages(t, "hello")...))
	noHeader := writeFile(t, dir, "noheader.pdf", []byte(strings.Repeat("x", 2048)))
	lateHeader := writeFile(t, dir, "late.pdf", []byte(strings.Repeat("x", 2000)+"%PDF-1.7"))
	empty := writeFile(t, dir, "empty.pdf", nil)
	text := writeFile(t, dir, "notes.txt", []byte("%PDF-1.7"))
	large := writeFile(t, dir, "large.pdf", append([]byte("%PDF-1.7\n"), make([]byte, 4096)...))

	v := NewValidator(4096)

	tests := []struct {
		name     string
		path     string
		wantType pdferrors.ErrorType
		wantErr  bool
	}{
		{name: "valid pdf", path: valid},
		{name: "header after junk", path: prefixed},
		{name: "empty path", path: "", wantErr: true, wantType: pdferrors.ErrorTypeInvalidInput},
		{name: "missing file", path: filepath.Join(dir, "missing.pdf"), wantErr: true, wantType: pdferrors.ErrorTypeInvalidInput},
		{name: "directory", path: dir, wantErr: true, wantType: pdferrors.ErrorTypeInvalidInput},
		{name: "wrong extension", path: text, wantErr: true, wantType: pdferrors.ErrorTypeInvalidInput},
		{name: "empty file", path: empty, wantErr: true, wantType: pdferrors.ErrorTypeInvalidInput},
		{name: "too large", path: large, wantErr: true, wantType: pdferrors.ErrorTypeInvalidInput},
		{name: "no header", path: noHeader, wantErr: true, wantType: pdferrors.ErrorTypeMalformedDocument},
		{name: "header outside window", path: lateHeader, wantErr: true, wantType: pdferrors.ErrorTypeMalformedDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := v.ValidateFile(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantType, pdferrors.TypeOf(err))
				assert.Nil(t, info)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Base(tt.path), info.Name())
		})
	}
}

func TestValidator_IsValidPDF(t *testing.T) {
	dir := t.TempDir()
	v := NewValidator(1 << 20)

	assert.True(t, v.IsValidPDF(writeFile(t, dir, "a.pdf", testutil.TextPages(t, "a"))))
	assert.False(t, v.IsValidPDF(writeFile(t, dir, "b.pdf", []byte("plain text"))))
	assert.False(t, v.IsValidPDF(filepath.Join(dir, "missing.pdf")))
}

func TestValidator_ValidateFileInfo(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "Report.PDF", []byte("%PDF-1.7 body"))
	info, err := os.Stat(path)
	require.NoError(t, err)

	assert.NoError(t, NewValidator(1024).ValidateFileInfo(path, info))

	err = NewValidator(4).ValidateFileInfo(path, info)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file too large")
}
