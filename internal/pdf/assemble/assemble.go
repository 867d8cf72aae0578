// Package assemble splices a renewed order form and the tail of an old
// package into one document.
package assemble

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/document"
	pdferrors "github.com/a3tai/mcp-pdf-renewal/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-renewal/internal/session"
)

// Assembler joins documents. It keeps no state between calls.
type Assembler struct{}

// NewAssembler creates an assembler
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble returns every page of newForm followed by the pages of
// oldPackage from the 0-based index split onwards. split must lie in
// [0, pages(oldPackage)]; split equal to the page count appends nothing.
func (a *Assembler) Assemble(ctx context.Context, newForm, oldPackage *document.Document, split int) (*document.Document, error) {
	if newForm == nil || oldPackage == nil {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidInput, "both documents are required")
	}

	total := oldPackage.PageCount()
	if split < 0 || split > total {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidSplitIndex,
			fmt.Sprintf("split %d outside [0, %d]", split, total))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := session.FromContext(ctx).Logger
	want := newForm.PageCount() + total - split

	if split == total {
		logger.Info().Int("pages", want).Msg("no old pages kept, output is the new form")
		return newForm, nil
	}

	tail, err := trimFrom(oldPackage, split)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeMalformedDocument, "failed to select old package pages", err)
	}

	var buf bytes.Buffer
	inputs := []io.ReadSeeker{newForm.Reader(), bytes.NewReader(tail)}
	if err := api.MergeRaw(inputs, &buf, false, document.Config()); err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeMalformedDocument, "failed to merge documents", err)
	}

	out, err := document.Load(buf.Bytes())
	if err != nil {
		return nil, err
	}
	if out.PageCount() != want {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeMalformedDocument,
			fmt.Sprintf("assembled %d pages, expected %d", out.PageCount(), want))
	}

	logger.Info().
		Int("form_pages", newForm.PageCount()).
		Int("kept_pages", total-split).
		Int("removed_pages", split).
		Msg("documents assembled")
	return out, nil
}

// trimFrom keeps the pages of doc from the 0-based index onwards
func trimFrom(doc *document.Document, index int) ([]byte, error) {
	if index == 0 {
		return doc.Bytes(), nil
	}

	var buf bytes.Buffer
	selection := []string{fmt.Sprintf("%d-", index+1)}
	if err := api.Trim(doc.Reader(), &buf, selection, document.Config()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
