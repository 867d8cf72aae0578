// Package document holds the immutable PDF document passed between the
// renewal components. A Document is its source bytes plus the page geometry
// pdfcpu reads from them; replacing a page produces a new Document.
package document

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	pdferrors "github.com/a3tai/mcp-pdf-renewal/internal/pdf/errors"
)

// US Letter, used when a page carries no usable MediaBox
const (
	DefaultPageWidth  = 612.0
	DefaultPageHeight = 792.0
)

// Size is a page size in PDF points
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Document is an ordered, immutable sequence of pages backed by PDF bytes
type Document struct {
	data  []byte
	sizes []Size
}

// Config returns the pdfcpu configuration shared by all components
func Config() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Load parses data as a PDF. It fails with MalformedDocument when pdfcpu
// cannot read the bytes and with EmptyDocument when there are no pages.
func Load(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeMalformedDocument, "empty byte buffer")
	}

	ctx, err := readContext(data)
	if err != nil {
		return nil, err
	}

	if ctx.PageCount == 0 {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeEmptyDocument, "document has no pages")
	}

	sizes := make([]Size, ctx.PageCount)
	dims, err := ctx.PageDims()
	for i := range sizes {
		sizes[i] = Size{Width: DefaultPageWidth, Height: DefaultPageHeight}
		if err == nil && i < len(dims) && dims[i].Width > 0 && dims[i].Height > 0 {
			sizes[i] = Size{Width: dims[i].Width, Height: dims[i].Height}
		}
	}

	return &Document{data: data, sizes: sizes}, nil
}

// readContext reads data into a pdfcpu context with a guaranteed page count
func readContext(data []byte) (ctx *model.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			ctx = nil
			err = pdferrors.NewPDFError(pdferrors.ErrorTypeMalformedDocument, "pdf parser panicked").
				WithContext(fmt.Sprint(r))
		}
	}()

	ctx, err = api.ReadContext(bytes.NewReader(data), Config())
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeMalformedDocument, "failed to read PDF context", err)
	}

	if err := ctx.EnsurePageCount(); err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeMalformedDocument, "failed to ensure page count", err)
	}

	return ctx, nil
}

// Context returns a fresh pdfcpu context for d. Callers may modify it freely;
// d itself is never affected.
func (d *Document) Context() (*model.Context, error) {
	return readContext(d.data)
}

// PageCount returns the number of pages
func (d *Document) PageCount() int {
	return len(d.sizes)
}

// PageSize returns the size of the page at the 0-based index
func (d *Document) PageSize(index int) (Size, error) {
	if index < 0 || index >= len(d.sizes) {
		return Size{}, pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidInput,
			fmt.Sprintf("page index %d out of range [0, %d)", index, len(d.sizes)))
	}
	return d.sizes[index], nil
}

// Bytes returns the document's PDF bytes. The slice must not be modified.
func (d *Document) Bytes() []byte {
	return d.data
}

// Reader returns a new read-seeker over the document bytes
func (d *Document) Reader() *bytes.Reader {
	return bytes.NewReader(d.data)
}

// Len returns the size of the document in bytes
func (d *Document) Len() int {
	return len(d.data)
}
