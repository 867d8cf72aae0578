package pdf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/document"
	pdferrors "github.com/a3tai/mcp-pdf-renewal/internal/pdf/errors"
)

// OutputFilePerm is the mode of written PDFs
const OutputFilePerm = 0o640

// Reader moves documents between the file system and memory
type Reader struct {
	validator *Validator
}

// NewReader creates a new PDF reader with the specified constraints
func NewReader(maxFileSize int64) *Reader {
	return &Reader{
		validator: NewValidator(maxFileSize),
	}
}

// ReadDocument validates and loads the file at path
func (r *Reader) ReadDocument(path string) (*document.Document, error) {
	if _, err := r.validator.ValidateFile(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is confined by the path validator
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeIOFailure, "cannot read file", err).WithContext(path)
	}

	doc, err := document.Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// WriteDocument writes doc to path, creating the parent directory
func (r *Reader) WriteDocument(path string, doc *document.Document) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return 0, pdferrors.WrapError(pdferrors.ErrorTypeIOFailure, "cannot create output directory", err)
	}
	if err := os.WriteFile(path, doc.Bytes(), OutputFilePerm); err != nil {
		return 0, pdferrors.WrapError(pdferrors.ErrorTypeIOFailure, "cannot write output", err).WithContext(path)
	}
	return int64(doc.Len()), nil
}
