package overlay

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/document"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/extraction"
)

// Annotation is a page annotation with its rectangle
type Annotation struct {
	Subtype string          `json:"subtype"`
	Rect    extraction.Rect `json:"rect"`
}

// PageAnnotations lists the annotations of the page at the 0-based index
func PageAnnotations(data []byte, index int) ([]Annotation, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), document.Config())
	if err != nil {
		return nil, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, err
	}

	_, annots, err := pageAnnots(ctx, index)
	if err != nil {
		return nil, err
	}

	out := make([]Annotation, 0, len(annots))
	for _, obj := range annots {
		a, ok := readAnnotation(ctx, obj)
		if ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// removeCoveredAnnotations drops the annotations of the page at index whose
// rectangle intersects cover. Documents without such annotations are
// returned unchanged.
func removeCoveredAnnotations(data []byte, index int, cover extraction.Rect) ([]byte, int, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), document.Config())
	if err != nil {
		return nil, 0, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, 0, err
	}

	pageDict, annots, err := pageAnnots(ctx, index)
	if err != nil {
		return nil, 0, err
	}

	kept := types.Array{}
	for _, obj := range annots {
		if a, ok := readAnnotation(ctx, obj); ok && a.Rect.Intersects(cover) {
			continue
		}
		kept = append(kept, obj)
	}

	removed := len(annots) - len(kept)
	if removed == 0 {
		return data, 0, nil
	}

	if len(kept) == 0 {
		pageDict.Delete("Annots")
	} else {
		pageDict.Update("Annots", kept)
	}

	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), removed, nil
}

func pageAnnots(ctx *model.Context, index int) (types.Dict, types.Array, error) {
	if index < 0 || index >= ctx.PageCount {
		return nil, nil, fmt.Errorf("page index %d out of range [0, %d)", index, ctx.PageCount)
	}

	pageDict, _, _, err := ctx.PageDict(index+1, false)
	if err != nil {
		return nil, nil, err
	}
	if pageDict == nil {
		return nil, nil, fmt.Errorf("page %d has no dictionary", index+1)
	}

	obj, found := pageDict.Find("Annots")
	if !found || obj == nil {
		return pageDict, nil, nil
	}

	annots, err := ctx.DereferenceArray(obj)
	if err != nil {
		return nil, nil, err
	}
	return pageDict, annots, nil
}

func readAnnotation(ctx *model.Context, obj types.Object) (Annotation, bool) {
	d, err := ctx.DereferenceDict(obj)
	if err != nil || d == nil {
		return Annotation{}, false
	}

	var a Annotation
	if st, found := d.Find("Subtype"); found {
		if name, ok := st.(types.Name); ok {
			a.Subtype = string(name)
		}
	}

	rectObj, found := d.Find("Rect")
	if !found {
		return Annotation{}, false
	}
	arr, err := ctx.DereferenceArray(rectObj)
	if err != nil || len(arr) != 4 {
		return Annotation{}, false
	}

	var v [4]float64
	for i, o := range arr {
		f, err := ctx.DereferenceNumber(o)
		if err != nil {
			return Annotation{}, false
		}
		v[i] = f
	}

	a.Rect = extraction.Rect{
		X0: min(v[0], v[2]),
		Y0: min(v[1], v[3]),
		X1: max(v[0], v[2]),
		Y1: max(v[1], v[3]),
	}
	return a, true
}
