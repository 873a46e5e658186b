package document

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

// Preview describes the file a preview PDF stands in for.
type Preview struct {
	FileID     string
	FileName   string
	Channel    string
	Status     string
	Validation string
	Recipient  string
	Generated  time.Time
}

// PreviewName is the download name for a preview of fileName.
func PreviewName(fileName string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName)) + " - preview.pdf"
}

// RenderPreview builds a one-page A4 PDF listing p's routing details, with a
// QR code of the file id so printed copies can be traced back.
func RenderPreview(p Preview) ([]byte, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetTitle(PreviewName(p.FileName), true)
	doc.AddPage()
	// Core fonts are cp1252; file names and recipients arrive as UTF-8.
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetFont("Arial", "B", 18)
	doc.CellFormat(0, 12, "Omnigo preview", "", 1, "L", false, 0, "")
	doc.SetFont("Arial", "", 12)
	doc.CellFormat(0, 8, tr(p.FileName), "", 1, "L", false, 0, "")
	doc.Ln(4)

	rows := [][2]string{
		{"File id", p.FileID},
		{"Channel", p.Channel},
		{"Status", p.Status},
		{"Validation", p.Validation},
		{"Recipient", p.Recipient},
		{"Generated", p.Generated.UTC().Format(time.RFC3339)},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		doc.SetFont("Arial", "B", 11)
		doc.CellFormat(40, 7, tr(row[0]), "", 0, "L", false, 0, "")
		doc.SetFont("Arial", "", 11)
		doc.CellFormat(0, 7, tr(row[1]), "", 1, "L", false, 0, "")
	}

	png, err := qrcode.Encode("omnigo:file:"+p.FileID, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	doc.RegisterImageOptionsReader("qr", opts, bytes.NewReader(png))
	doc.ImageOptions("qr", 150, 20, 40, 40, false, opts, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render preview: %w", err)
	}
	return buf.Bytes(), nil
}
