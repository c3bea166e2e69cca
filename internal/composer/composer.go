// Package composer turns a subject's ordered images into a paginated PDF:
// one cover page followed by one full-bleed page per image.
package composer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"pdfcourier/internal/apperrors"
	"pdfcourier/internal/collector"
	"time"

	"github.com/go-pdf/fpdf"
)

// Fixed page geometry, in points measured from the lower-left corner.
const (
	fontFamily = "Helvetica"

	subjectX, subjectY, subjectSize = 140.0, 500.0, 50.0
	dateX, dateY, dateSize          = 180.0, 460.0, 25.0
	authorX, authorY, authorSize    = 120.0, 400.0, 35.0

	watermarkX, watermarkY, watermarkSize = 150.0, 250.0, 50.0
	watermarkAngle                        = 45.0
)

// watermarkColor is the accent used for the per-page author stamp.
var watermarkColor = [3]int{242, 31, 59}

// Page describes one page of a composed document.
type Page struct {
	Number      int     // 1-based
	Source      string  // image file name; empty for the cover
	Width       float64 // points
	Height      float64 // points
	Annotations []string
}

// Document is a composed, serialized PDF for one subject.
type Document struct {
	Subject     string
	GeneratedAt time.Time
	Pages       []Page
	Bytes       []byte
}

// PageCount returns the number of pages, cover included.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// Composer builds documents. It holds no per-subject state and may be reused.
type Composer struct {
	cfg Config
	now func() time.Time
}

// New creates a composer.
func New(cfg Config) *Composer {
	return &Composer{
		cfg: cfg.withDefaults(),
		now: time.Now,
	}
}

// Compose assembles the document for subject from images, in the given order.
// A subject without images yields a cover-only document. An image whose
// encoding is not supported aborts the whole subject.
func (c *Composer) Compose(subject string, images []collector.SourceImage) (*Document, error) {
	generated := c.now()
	authorText := c.AuthorText()

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(generated)
	pdf.SetCreator("pdfcourier", false)
	pdf.SetTitle("Subject: "+subject, true)
	pdf.SetAuthor(c.cfg.AuthorLabel, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	doc := &Document{
		Subject:     subject,
		GeneratedAt: generated,
		Pages:       make([]Page, 0, len(images)+1),
	}

	// Cover.
	pdf.AddPage()
	coverW, coverH := pdf.GetPageSize()
	cover := Page{Number: 1, Width: coverW, Height: coverH}
	for _, a := range []struct {
		text    string
		x, y, s float64
	}{
		{"Subject: " + subject, subjectX, subjectY, subjectSize},
		{generated.Format(c.cfg.DateLayout), dateX, dateY, dateSize},
		{authorText, authorX, authorY, authorSize},
	} {
		pdf.SetFont(fontFamily, "", a.s)
		pdf.Text(a.x, coverH-a.y, tr(a.text))
		cover.Annotations = append(cover.Annotations, a.text)
	}
	doc.Pages = append(doc.Pages, cover)

	for i, img := range images {
		page, err := c.addImagePage(pdf, subject, i, img, tr(authorText))
		if err != nil {
			return nil, err
		}
		page.Number = i + 2
		page.Annotations = []string{authorText}
		doc.Pages = append(doc.Pages, page)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, apperrors.Composition(subject, "", err)
	}
	doc.Bytes = buf.Bytes()
	return doc, nil
}

// AuthorText is the author annotation drawn on the cover and every image page.
func (c *Composer) AuthorText() string {
	return "Notes By: " + c.cfg.AuthorLabel
}

func (c *Composer) addImagePage(pdf *fpdf.Fpdf, subject string, index int, img collector.SourceImage, watermark string) (Page, error) {
	imageType, cfg, err := decodeConfig(img)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnsupportedEncoding) {
			return Page{}, apperrors.UnsupportedEncoding(subject, img.Name)
		}
		return Page{}, apperrors.Composition(subject, img.Name, err)
	}

	// One pixel maps to one point so the page carries the image's own geometry.
	w, h := float64(cfg.Width), float64(cfg.Height)
	opts := fpdf.ImageOptions{ImageType: imageType}
	name := fmt.Sprintf("%03d-%s", index, img.Name)

	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))
	if pdf.Err() {
		return Page{}, apperrors.Composition(subject, img.Name, pdf.Error())
	}

	pdf.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
	pdf.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")

	x, y := watermarkX, h-watermarkY
	pdf.SetFont(fontFamily, "", watermarkSize)
	pdf.SetTextColor(watermarkColor[0], watermarkColor[1], watermarkColor[2])
	pdf.TransformBegin()
	pdf.TransformRotate(watermarkAngle, x, y)
	pdf.Text(x, y, watermark)
	pdf.TransformEnd()
	pdf.SetTextColor(0, 0, 0)

	if pdf.Err() {
		return Page{}, apperrors.Composition(subject, img.Name, pdf.Error())
	}
	return Page{Source: img.Name, Width: w, Height: h}, nil
}

// decodeConfig reads the image header per its declared encoding and returns
// the matching fpdf image type.
func decodeConfig(img collector.SourceImage) (string, image.Config, error) {
	r := bytes.NewReader(img.Data)
	var (
		imageType string
		cfg       image.Config
		err       error
	)
	switch img.Encoding {
	case collector.EncodingPNG:
		imageType = "PNG"
		cfg, err = png.DecodeConfig(r)
	case collector.EncodingJPEG:
		imageType = "JPG"
		cfg, err = jpeg.DecodeConfig(r)
	default:
		return "", image.Config{}, apperrors.ErrUnsupportedEncoding
	}
	if err != nil {
		return "", image.Config{}, fmt.Errorf("decode %s header: %w", img.Encoding, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", image.Config{}, fmt.Errorf("invalid image size %dx%d", cfg.Width, cfg.Height)
	}
	return imageType, cfg, nil
}
