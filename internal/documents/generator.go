// Package documents renders the per-job application document package:
// HTML and Markdown from embedded templates, PDF by converting the rendered
// HTML with wkhtmltopdf.
package documents

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/jonathan/jobprep/internal/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlTemplate = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/resume.html.tmpl"))
	mdTemplate   = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/resume.md.tmpl"))
)

// PDFTimeout is the maximum time to wait for HTML-to-PDF conversion.
const PDFTimeout = 30 * time.Second

// Generator renders document packages under outputDir/<job-id>/.
type Generator struct {
	outputDir string
	pdfBinary string
}

// New creates a Generator writing under outputDir.
func New(outputDir string) *Generator {
	return &Generator{outputDir: outputDir, pdfBinary: "wkhtmltopdf"}
}

type templateData struct {
	Job    *types.JobPosting
	Resume *types.CustomizedResume
	Date   string
}

// Render writes one document per requested format and returns the package.
// Duplicate formats are rendered once.
func (g *Generator) Render(ctx context.Context, job *types.JobPosting, resume *types.CustomizedResume, formats []string) (*types.DocumentPackage, error) {
	if len(formats) == 0 {
		return nil, &RenderError{Message: "no formats requested"}
	}

	dir := filepath.Join(g.outputDir, job.ID.String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &RenderError{Message: fmt.Sprintf("failed to create output directory %s", dir), Cause: err}
	}

	data := templateData{
		Job:    job,
		Resume: resume,
		Date:   time.Now().Format("January 2, 2006"),
	}

	pkg := &types.DocumentPackage{JobID: job.ID}
	seen := make(map[string]bool, len(formats))
	var htmlPath string

	for _, format := range formats {
		if seen[format] {
			continue
		}
		seen[format] = true

		var path string
		switch format {
		case types.FormatMarkdown:
			path = filepath.Join(dir, "resume.md")
			if err := renderTo(path, func(buf *bytes.Buffer) error {
				return mdTemplate.Execute(buf, data)
			}); err != nil {
				return nil, err
			}

		case types.FormatHTML:
			path = filepath.Join(dir, "resume.html")
			if err := renderTo(path, func(buf *bytes.Buffer) error {
				return htmlTemplate.Execute(buf, data)
			}); err != nil {
				return nil, err
			}
			htmlPath = path

		case types.FormatPDF:
			// PDF converts from the rendered HTML; render it first if the
			// html format was not also requested.
			if htmlPath == "" {
				htmlPath = filepath.Join(dir, "resume.html")
				if err := renderTo(htmlPath, func(buf *bytes.Buffer) error {
					return htmlTemplate.Execute(buf, data)
				}); err != nil {
					return nil, err
				}
			}
			path = filepath.Join(dir, "resume.pdf")
			if err := g.convertPDF(ctx, htmlPath, path); err != nil {
				return nil, err
			}

		default:
			return nil, &RenderError{Message: fmt.Sprintf("unsupported format %q", format)}
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, &RenderError{Message: fmt.Sprintf("rendered file missing: %s", path), Cause: err}
		}
		pkg.Documents = append(pkg.Documents, types.Document{
			Format: format,
			Path:   path,
			Size:   info.Size(),
		})
		pkg.TotalSize += info.Size()
	}

	return pkg, nil
}

// renderTo executes a template into a buffer and writes it to path.
func renderTo(path string, execute func(*bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := execute(&buf); err != nil {
		return &RenderError{Message: fmt.Sprintf("failed to render %s", filepath.Base(path)), Cause: err}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return &RenderError{Message: fmt.Sprintf("failed to write %s", path), Cause: err}
	}
	return nil
}

// convertPDF runs wkhtmltopdf on the rendered HTML.
func (g *Generator) convertPDF(ctx context.Context, htmlPath, pdfPath string) error {
	if _, err := exec.LookPath(g.pdfBinary); err != nil {
		return &RenderError{
			Message: fmt.Sprintf("%s not found in PATH; install it for PDF output", g.pdfBinary),
			Cause:   err,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, PDFTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.pdfBinary, "--quiet", htmlPath, pdfPath)
	var output strings.Builder
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return &RenderError{
			Message:   "PDF conversion failed",
			LogOutput: output.String(),
			Cause:     err,
		}
	}

	if _, err := os.Stat(pdfPath); err != nil {
		return &RenderError{
			Message:   "PDF conversion produced no output file",
			LogOutput: output.String(),
			Cause:     err,
		}
	}
	return nil
}
