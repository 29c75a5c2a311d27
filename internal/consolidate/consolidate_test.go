package consolidate_test

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fyrsmithlabs/webingest/internal/consolidate"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func writePDF(t *testing.T, path, text string) {
	t.Helper()
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()
	pdf.MultiCell(0, 5, text, "", "L", false)
	require.NoError(t, pdf.OutputFileAndClose(path))
}

func TestBuildPlan_DeterministicOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page_content.txt"), []byte("hello"), 0o644))
	for _, name := range []string{"zebra.png", "alpha.jpg", "mid.jpeg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	for _, name := range []string{"b.pdf", "a.pdf", "text_content.pdf", "combined_output.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	// Non-asset files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o644))

	output := filepath.Join(dir, "combined_output.pdf")

	plan, err := consolidate.BuildPlan(dir, output)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "page_content.txt"), plan.TextFile)
	assert.Equal(t, []string{
		filepath.Join(dir, "alpha.jpg"),
		filepath.Join(dir, "mid.jpeg"),
		filepath.Join(dir, "zebra.png"),
	}, plan.Images)

	// Intermediates and the output file are excluded from pre-existing PDFs.
	assert.Equal(t, []string{
		filepath.Join(dir, "a.pdf"),
		filepath.Join(dir, "b.pdf"),
	}, plan.PDFs)

	// Same contents, same plan.
	again, err := consolidate.BuildPlan(dir, output)
	require.NoError(t, err)
	assert.Equal(t, plan, again)
}

func TestConsolidate_TextImagesAndPDFs(t *testing.T) {
	dir := t.TempDir()
	longText := strings.Repeat("A line of captured page text.\n", 200)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page_content.txt"), []byte(longText), 0o644))
	writePNG(t, filepath.Join(dir, "chart.png"))
	writePNG(t, filepath.Join(dir, "logo.png"))
	writePDF(t, filepath.Join(dir, "manual.pdf"), "Pre-existing manual.")

	svc := consolidate.NewService(zaptest.NewLogger(t))
	output := filepath.Join(dir, "combined_output.pdf")

	got, err := svc.Consolidate(dir, output)
	require.NoError(t, err)
	assert.Equal(t, output, got)

	// Text overflowed to multiple pages, plus one page per image and one
	// from the pre-existing PDF.
	pages, err := api.PageCountFile(output)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pages, 5)

	// Intermediates are cleaned up; sources and output remain.
	for _, name := range []string{"text_content.pdf", "chart.pdf", "logo.pdf"} {
		_, statErr := os.Stat(filepath.Join(dir, name))
		assert.True(t, os.IsNotExist(statErr), "%s should be removed", name)
	}
	for _, name := range []string{"page_content.txt", "chart.png", "logo.png", "manual.pdf", "combined_output.pdf"} {
		_, statErr := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, statErr, "%s should remain", name)
	}
}

func TestConsolidate_SkipsBrokenImage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page_content.txt"), []byte("some text"), 0o644))
	writePNG(t, filepath.Join(dir, "good.png"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0o644))

	svc := consolidate.NewService(zaptest.NewLogger(t))
	output := filepath.Join(dir, "combined_output.pdf")

	_, err := svc.Consolidate(dir, output)
	require.NoError(t, err, "a broken asset must not abort consolidation")

	pages, err := api.PageCountFile(output)
	require.NoError(t, err)
	assert.Equal(t, 2, pages) // text page + good image page
}

func TestConsolidate_EmptyWorkspace(t *testing.T) {
	svc := consolidate.NewService(zaptest.NewLogger(t))
	dir := t.TempDir()

	_, err := svc.Consolidate(dir, filepath.Join(dir, "combined_output.pdf"))
	assert.ErrorIs(t, err, consolidate.ErrNothingToMerge)
}
