package pdf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	pdferrors "github.com/a3tai/mcp-pdf-renewal/internal/pdf/errors"
)

// pdfHeader starts every PDF file
var pdfHeader = []byte("%PDF-")

// headerWindow is how far into the file the header may start. Some writers
// put junk before it and readers tolerate up to 1KB.
const headerWindow = 1024

// Validator handles PDF file validation operations
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// ValidateFile checks an input file before it is read: it must be a
// regular, non-empty .pdf file no larger than the size limit whose first
// kilobyte contains the PDF header
func (v *Validator) ValidateFile(filePath string) (os.FileInfo, error) {
	if filePath == "" {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidInput, "path cannot be empty")
	}

	fileInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidInput, "file does not exist").
			WithContext(filePath)
	}
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeIOFailure, "cannot access file", err)
	}

	if err := v.ValidateFileInfo(filePath, fileInfo); err != nil {
		return nil, err
	}

	if err := checkHeader(filePath); err != nil {
		return nil, err
	}
	return fileInfo, nil
}

// IsValidPDF performs a quick check to see if a file is a valid PDF
func (v *Validator) IsValidPDF(filePath string) bool {
	_, err := v.ValidateFile(filePath)
	return err == nil
}

// ValidateFileInfo performs basic validation on file info without opening the PDF
func (v *Validator) ValidateFileInfo(filePath string, fileInfo os.FileInfo) error {
	if !fileInfo.Mode().IsRegular() {
		return pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidInput, "not a regular file").
			WithContext(filePath)
	}

	if !strings.HasSuffix(strings.ToLower(filePath), ".pdf") {
		return pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidInput, "file is not a PDF").
			WithContext(filePath)
	}

	if fileInfo.Size() == 0 {
		return pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidInput, "file is empty").
			WithContext(filePath)
	}

	if fileInfo.Size() > v.maxFileSize {
		return pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidInput,
			fmt.Sprintf("file too large: %d bytes (max: %d bytes)", fileInfo.Size(), v.maxFileSize)).
			WithContext(filePath)
	}

	return nil
}

func checkHeader(filePath string) error {
	f, err := os.Open(filePath) //nolint:gosec // path is confined by the path validator
	if err != nil {
		return pdferrors.WrapError(pdferrors.ErrorTypeIOFailure, "cannot open file", err)
	}
	defer f.Close()

	head := make([]byte, headerWindow)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return pdferrors.WrapError(pdferrors.ErrorTypeIOFailure, "cannot read file", err)
	}
	if !bytes.Contains(head[:n], pdfHeader) {
		return pdferrors.NewPDFError(pdferrors.ErrorTypeMalformedDocument, "missing %PDF- header").
			WithContext(filePath)
	}
	return nil
}
