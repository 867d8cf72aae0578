package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/document"
	pdferrors "github.com/a3tai/mcp-pdf-renewal/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-renewal/internal/renewal"
	"github.com/a3tai/mcp-pdf-renewal/internal/testutil"
)

type serviceFixture struct {
	svc        *Service
	inputDir   string
	outputDir  string
	newForm    string
	oldPackage string
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()

	root := t.TempDir()
	in := filepath.Join(root, "in")
	out := filepath.Join(root, "out")
	require.NoError(t, os.MkdirAll(in, 0o755))

	cover := testutil.TextPage("Order Form", "Company Name: Acme Corp", "Quote Q-1001")
	terms := testutil.Letter()
	terms.Lines = []testutil.Line{
		{Text: "Subscription details", X: 72, Baseline: 720, Size: 14},
		{Text: "By accepting this quote you agree to our Terms of Use and Sale", X: 72, Baseline: 300, Size: 9},
		{Text: "for Businesses which can be viewed below.", X: 72, Baseline: 288, Size: 9},
	}

	svc, err := NewService(ServiceOptions{
		MaxFileSize:     1 << 20,
		InputDirectory:  in,
		OutputDirectory: out,
		Workflow:        renewal.DefaultOptions(),
	})
	require.NoError(t, err)

	return serviceFixture{
		svc:       svc,
		inputDir:  in,
		outputDir: out,
		newForm:   writeFile(t, in, "new-form.pdf", testutil.MustBuild(t, cover, terms)),
		oldPackage: writeFile(t, in, "old-package.pdf", testutil.TextPages(t,
			"old form page 1", "old form page 2", "Authorized Signature and Date Signed",
			"addendum 1", "addendum 2")),
	}
}

func readBack(t *testing.T, path string) *document.Document {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := document.Load(data)
	require.NoError(t, err)
	return doc
}

func TestNewService(t *testing.T) {
	dir := t.TempDir()

	svc, err := NewService(ServiceOptions{InputDirectory: dir, Workflow: renewal.DefaultOptions()})
	require.NoError(t, err)
	assert.Equal(t, dir, svc.OutputDirectory())
	assert.Positive(t, svc.GetMaxFileSize())
	assert.NotNil(t, svc.Workflow())

	_, err = NewService(ServiceOptions{Workflow: renewal.DefaultOptions()})
	assert.Error(t, err)

	bad := renewal.DefaultOptions()
	bad.OnMiss = "explode"
	_, err = NewService(ServiceOptions{InputDirectory: dir, Workflow: bad})
	assert.Error(t, err)
}

func TestService_AnalyzePackage(t *testing.T) {
	f := newServiceFixture(t)

	res, err := f.svc.AnalyzePackage(context.Background(), PDFAnalyzePackageRequest{Path: "old-package.pdf"})
	require.NoError(t, err)
	assert.Equal(t, f.oldPackage, res.Path)
	assert.Equal(t, 5, res.TotalPages)
	assert.Equal(t, 3, res.SuggestedFormPages)
	assert.True(t, res.Detected)
}

func TestService_LocateText(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	res, err := f.svc.LocateText(ctx, PDFLocateTextRequest{Path: f.newForm})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, 2, res.Page)
	require.NotNil(t, res.Region)
	assert.Equal(t, []string{renewal.DefaultNeedle}, res.Needles)
	assert.Equal(t, "any", res.Mode)

	res, err = f.svc.LocateText(ctx, PDFLocateTextRequest{Path: f.newForm, Needles: []string{"quote q-1001"}})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, 1, res.Page)

	res, err = f.svc.LocateText(ctx, PDFLocateTextRequest{
		Path: f.newForm, Needles: []string{"quote q-1001", "viewed below"}, Mode: "all",
	})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, "all", res.Mode)

	res, err = f.svc.LocateText(ctx, PDFLocateTextRequest{
		Path: f.newForm, Needles: []string{"quote q-1001", "master agreement"}, Mode: "all",
	})
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Nil(t, res.Region)
	assert.Zero(t, res.Page)

	_, err = f.svc.LocateText(ctx, PDFLocateTextRequest{Path: f.newForm, Mode: "some"})
	assert.Error(t, err)
}

func TestService_ReplaceText(t *testing.T) {
	f := newServiceFixture(t)

	res, err := f.svc.ReplaceText(context.Background(), PDFReplaceTextRequest{Path: "new-form.pdf"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.outputDir, "new-form - Updated.pdf"), res.OutputPath)
	assert.Equal(t, 2, res.Pages)
	assert.Positive(t, res.Size)
	require.NotNil(t, res.Replacement)
	assert.True(t, res.Replacement.Located)
	assert.True(t, res.Replacement.Applied)

	assert.Equal(t, 2, readBack(t, res.OutputPath).PageCount())

	res, err = f.svc.ReplaceText(context.Background(), PDFReplaceTextRequest{Path: "new-form.pdf", Output: "custom"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.outputDir, "custom.pdf"), res.OutputPath)
}

func TestService_RenewPackage(t *testing.T) {
	f := newServiceFixture(t)
	restore := timeNow
	timeNow = func() time.Time { return time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { timeNow = restore })

	res, err := f.svc.RenewPackage(context.Background(), PDFRenewPackageRequest{
		NewFormPath:    "new-form.pdf",
		OldPackagePath: "old-package.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", res.Company)
	assert.Equal(t, 3, res.OldFormPages)
	assert.Equal(t, 2, res.AddendaPreserved)
	assert.Equal(t, 4, res.TotalPages)
	assert.True(t, strings.HasPrefix(filepath.Base(res.OutputPath), "Order Form - Acme Corp - "))
	assert.Equal(t, f.outputDir, filepath.Dir(res.OutputPath))
	assert.Equal(t, 4, readBack(t, res.OutputPath).PageCount())

	company, err := f.svc.ExtractCompany(context.Background(), PDFExtractCompanyRequest{Path: "new-form.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "Order Form - Acme Corp - 20260304 - Renewal.pdf", company.Filename)
	assert.True(t, company.Found)
}

func TestService_RenewPackage_ManualSplit(t *testing.T) {
	f := newServiceFixture(t)

	for _, split := range []int{0, 1, 5} {
		t.Run(fmt.Sprintf("split %d", split), func(t *testing.T) {
			res, err := f.svc.RenewPackage(context.Background(), PDFRenewPackageRequest{
				NewFormPath:    f.newForm,
				OldPackagePath: f.oldPackage,
				FormEndPage:    &split,
				Output:         fmt.Sprintf("split-%d.pdf", split),
			})
			require.NoError(t, err)
			assert.True(t, res.SplitOverridden)
			assert.Equal(t, split, res.OldFormPages)
			assert.Equal(t, 2+5-split, res.TotalPages)
		})
	}

	bad := 6
	_, err := f.svc.RenewPackage(context.Background(), PDFRenewPackageRequest{
		NewFormPath: f.newForm, OldPackagePath: f.oldPackage, FormEndPage: &bad,
	})
	assert.ErrorIs(t, err, pdferrors.ErrInvalidSplitIndex)
}

func TestService_PathConfinement(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	outside := writeFile(t, t.TempDir(), "outside.pdf", testutil.TextPages(t, "secret"))

	_, err := f.svc.AnalyzePackage(ctx, PDFAnalyzePackageRequest{Path: outside})
	assert.ErrorContains(t, err, "security validation failed")

	_, err = f.svc.AnalyzePackage(ctx, PDFAnalyzePackageRequest{Path: "../../outside.pdf"})
	assert.ErrorContains(t, err, "security validation failed")

	_, err = f.svc.ReplaceText(ctx, PDFReplaceTextRequest{Path: f.newForm, Output: "../../escape.pdf"})
	assert.ErrorContains(t, err, "security validation failed")

	_, err = f.svc.RenewPackage(ctx, PDFRenewPackageRequest{NewFormPath: f.newForm, OldPackagePath: outside})
	assert.ErrorContains(t, err, "old package")

	_, err = f.svc.SearchDirectory(ctx, PDFSearchDirectoryRequest{Directory: filepath.Dir(outside)})
	assert.ErrorContains(t, err, "security validation failed")
}

func TestService_ExtractCompany_Unknown(t *testing.T) {
	f := newServiceFixture(t)
	writeFile(t, f.inputDir, "blank.pdf", testutil.TextPages(t, "no labels here"))

	res, err := f.svc.ExtractCompany(context.Background(), PDFExtractCompanyRequest{Path: "blank.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "Unknown", res.Company)
	assert.False(t, res.Found)
}

func TestService_SearchDirectory(t *testing.T) {
	f := newServiceFixture(t)

	res, err := f.svc.SearchDirectory(context.Background(), PDFSearchDirectoryRequest{})
	require.NoError(t, err)
	assert.Equal(t, f.inputDir, res.Directory)
	assert.Equal(t, 2, res.TotalCount)

	res, err = f.svc.SearchDirectory(context.Background(), PDFSearchDirectoryRequest{Query: "old"})
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, f.oldPackage, res.Files[0].Path)
}
