// Package extraction renders PDF pages to positioned text. Content streams
// are interpreted directly so that text painted inside Form XObjects is seen
// and text covered by a later opaque white fill is not, matching what a
// reader of the rendered page would see.
package extraction

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	pdferrors "github.com/a3tai/mcp-pdf-renewal/internal/pdf/errors"
)

// Extractor turns PDF bytes into PositionedText. An Extractor holds only
// immutable settings and may be shared.
type Extractor struct {
	params LayoutParams
}

// NewExtractor creates an extractor with the given grouping thresholds
func NewExtractor(params LayoutParams) *Extractor {
	return &Extractor{params: params}
}

// NewDefaultExtractor creates an extractor with DefaultLayoutParams
func NewDefaultExtractor() *Extractor {
	return NewExtractor(DefaultLayoutParams())
}

// Extract lays out the page at the 0-based index, or every page when page
// is nil. Unreadable bytes fail with MalformedDocument.
func (e *Extractor) Extract(ctx context.Context, data []byte, page *int) (result *PositionedText, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = pdferrors.NewPDFError(pdferrors.ErrorTypeMalformedDocument, "content stream could not be interpreted").
				WithContext(fmt.Sprint(r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeMalformedDocument, "failed to open PDF", err)
	}

	total := reader.NumPage()
	if total == 0 {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeEmptyDocument, "document has no pages")
	}

	first, last := 0, total-1
	if page != nil {
		if *page < 0 || *page >= total {
			return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidInput,
				fmt.Sprintf("page index %d out of range [0, %d)", *page, total))
		}
		first, last = *page, *page
	}

	in := newInterpreter(newMetrics())
	result = &PositionedText{TotalPages: total}

	for i := first; i <= last; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := reader.Page(i + 1)
		if p.V.IsNull() {
			return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeMalformedDocument, "missing page object").WithPage(i + 1)
		}

		width, height := mediaBox(p)
		result.Pages = append(result.Pages, PageText{
			Index:  i,
			Width:  width,
			Height: height,
			Boxes:  layout(in.page(p), e.params),
		})
	}

	return result, nil
}

// ExtractPage is a convenience for a single 0-based page
func (e *Extractor) ExtractPage(ctx context.Context, data []byte, index int) (*PageText, error) {
	pt, err := e.Extract(ctx, data, &index)
	if err != nil {
		return nil, err
	}
	return &pt.Pages[0], nil
}

// mediaBox returns the page size, walking up the page tree for inherited boxes
func mediaBox(p pdf.Page) (float64, float64) {
	v := p.V
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			w := box.Index(2).Float64() - box.Index(0).Float64()
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if w > 0 && h > 0 {
				return w, h
			}
		}
		v = v.Key("Parent")
	}
	return 612, 792
}
