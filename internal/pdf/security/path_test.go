package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPathValidator(t *testing.T) {
	dir := t.TempDir()

	v, err := NewPathValidator(dir, "", dir)
	require.NoError(t, err)
	assert.Len(t, v.Roots(), 1)
	assert.Equal(t, dir, v.GetConfiguredDirectory())

	_, err = NewPathValidator("")
	assert.Error(t, err)

	_, err = NewPathValidator()
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	v, err := NewPathValidator(in, out)
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{"absolute inside", filepath.Join(in, "form.pdf"), filepath.Join(in, "form.pdf"), false},
		{"relative to primary", "nested/form.pdf", filepath.Join(in, "nested", "form.pdf"), false},
		{"second root", filepath.Join(out, "renewed.pdf"), filepath.Join(out, "renewed.pdf"), false},
		{"root itself", in, in, false},
		{"parent traversal", "../escape.pdf", "", true},
		{"absolute outside", "/etc/passwd", "", true},
		{"sibling prefix", in + "-other/form.pdf", "", true},
		{"empty", "", "", true},
		{"nul byte", "form\x00.pdf", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Resolve(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_SymlinkEscape(t *testing.T) {
	in := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.pdf"), []byte("%PDF-1.4"), 0o600))

	link := filepath.Join(in, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	v, err := NewPathValidator(in)
	require.NoError(t, err)

	_, err = v.Resolve(filepath.Join(link, "secret.pdf"))
	assert.Error(t, err)
}

func TestValidateDirectory(t *testing.T) {
	in := t.TempDir()
	file := filepath.Join(in, "form.pdf")
	require.NoError(t, os.WriteFile(file, []byte("%PDF-1.4"), 0o600))

	v, err := NewPathValidator(in)
	require.NoError(t, err)

	assert.NoError(t, v.ValidateDirectory(in))
	assert.NoError(t, v.ValidateDirectory(filepath.Join(in, "not-yet")))
	assert.Error(t, v.ValidateDirectory(file))
	assert.Error(t, v.ValidateDirectory(t.TempDir()))
	assert.NoError(t, v.ValidatePath(file))
}
