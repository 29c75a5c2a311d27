// Package consolidate merges a workspace's text, images, and PDFs into one
// paginated PDF document.
package consolidate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/webingest/internal/scraper"
)

// textPDFName is the intermediate PDF rendered from the page text.
const textPDFName = "text_content.pdf"

// ErrNothingToMerge indicates the workspace produced no mergeable pages.
var ErrNothingToMerge = errors.New("nothing to merge")

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Plan is the ordered set of merge inputs derived from a workspace.
//
// Page order is fixed: text first, then images, then pre-existing PDFs.
// Within each class entries are sorted lexicographically by filename, so the
// same workspace contents always produce the same page order.
type Plan struct {
	// TextFile is the path of the page text, or "" if absent.
	TextFile string

	// Images are raster image paths, sorted by filename.
	Images []string

	// PDFs are pre-existing PDF paths, sorted by filename, excluding
	// intermediates and the output file.
	PDFs []string
}

// BuildPlan inspects a workspace and returns the merge plan.
func BuildPlan(workspaceDir, outputPath string) (Plan, error) {
	entries, err := os.ReadDir(workspaceDir)
	if err != nil {
		return Plan{}, fmt.Errorf("listing workspace %s: %w", workspaceDir, err)
	}

	outputBase := filepath.Base(outputPath)
	var plan Plan
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		switch {
		case name == scraper.PageTextFile:
			plan.TextFile = filepath.Join(workspaceDir, name)
		case imageExtensions[ext]:
			plan.Images = append(plan.Images, filepath.Join(workspaceDir, name))
		case ext == ".pdf" && name != textPDFName && name != outputBase:
			plan.PDFs = append(plan.PDFs, filepath.Join(workspaceDir, name))
		}
	}

	sort.Strings(plan.Images)
	sort.Strings(plan.PDFs)
	return plan, nil
}

// Service merges workspace contents into a single PDF.
type Service struct {
	logger *zap.Logger
}

// NewService creates a consolidation service.
func NewService(logger *zap.Logger) *Service {
	return &Service{logger: logger.Named("consolidate")}
}

// Consolidate produces one PDF at outputPath from the workspace.
//
// In order: the page text rendered as paged text content, every raster image
// as a single-page PDF, then every pre-existing PDF. A conversion failure on
// an individual asset is logged and the asset skipped; the merge proceeds
// with whatever remains. Intermediate per-asset PDFs are removed after the
// merge regardless of outcome; removal failures are logged, not escalated.
func (s *Service) Consolidate(workspaceDir, outputPath string) (string, error) {
	plan, err := BuildPlan(workspaceDir, outputPath)
	if err != nil {
		return "", err
	}

	var inputs []string
	var intermediates []string
	defer func() {
		for _, tmp := range intermediates {
			if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
				s.logger.Warn("failed to remove intermediate", zap.String("path", tmp), zap.Error(err))
			}
		}
	}()

	if plan.TextFile != "" {
		textPDF := filepath.Join(workspaceDir, textPDFName)
		if err := renderTextPDF(plan.TextFile, textPDF); err != nil {
			s.logger.Warn("skipping page text", zap.String("path", plan.TextFile), zap.Error(err))
		} else {
			inputs = append(inputs, textPDF)
			intermediates = append(intermediates, textPDF)
		}
	}

	for _, image := range plan.Images {
		imagePDF := strings.TrimSuffix(image, filepath.Ext(image)) + ".pdf"
		if err := renderImagePDF(image, imagePDF); err != nil {
			s.logger.Warn("skipping image", zap.String("path", image), zap.Error(err))
			continue
		}
		inputs = append(inputs, imagePDF)
		intermediates = append(intermediates, imagePDF)
	}

	inputs = append(inputs, plan.PDFs...)

	if len(inputs) == 0 {
		return "", fmt.Errorf("%w: workspace %s", ErrNothingToMerge, workspaceDir)
	}

	if err := api.MergeCreateFile(inputs, outputPath, false, nil); err != nil {
		return "", fmt.Errorf("merging %d documents: %w", len(inputs), err)
	}

	s.logger.Info("consolidated workspace",
		zap.String("output", outputPath),
		zap.Int("documents", len(inputs)))
	return outputPath, nil
}

// renderTextPDF renders plain text into an A4 PDF. Page overflow starts a
// new page via the auto page break.
func renderTextPDF(textPath, outputPath string) error {
	content, err := os.ReadFile(textPath)
	if err != nil {
		return fmt.Errorf("reading text: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetFont("Helvetica", "", 11)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, line := range strings.Split(string(content), "\n") {
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("writing text PDF: %w", err)
	}
	return nil
}

// renderImagePDF places one raster image on a single A4 page, scaled to the
// content width.
func renderImagePDF(imagePath, outputPath string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.ImageOptions(imagePath, 10, 10, 190, 0, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("writing image PDF: %w", err)
	}
	return nil
}
