package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/constants"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/common"
)

// TextConfidenceThreshold gates whether a recovered text layer is usable on
// its own or the vision path is required.
const TextConfidenceThreshold = 0.6

type Config struct {
	MaxEdge int // longest rendered side in px; default 2000

	EnableOCR     bool   // run local tesseract over prepared images
	Tesseract     string // binary name or absolute path; if empty -> "tesseract"
	TesseractLang string // default "eng"
	TessdataDir   string
	PSM           int // e.g. 6 for a uniform block of text
	OEM           int // 1 = LSTM; leave 0 for default
}

// Prepared is the outcome of document preparation: a vision-ready PNG plus
// whatever text could be recovered without a model.
type Prepared struct {
	PNG        []byte
	Text       string
	Confidence float32
	SourceType constants.FileFormat
	Method     string // "pdf-text" | "pdf-raster" | "pdf-ocr" | "image" | "image-ocr"
	Pages      int
	Duration   time.Duration
	Warnings   []string
}

type Preparer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewPreparer(cfg Config, logger *slog.Logger) *Preparer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxEdge <= 0 {
		cfg.MaxEdge = DefaultMaxEdge
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	return &Preparer{cfg: cfg, runner: execRunner{}, logger: logger}
}

// Prepare picks a strategy based on file extension.
func (p *Preparer) Prepare(ctx context.Context, path string) (Prepared, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	p.logger.Debug("preparing document", "path", path, "ext", ext)

	format, ok := constants.MapExtToFormat(ext)
	if !ok {
		return Prepared{}, common.NewAppError("UNSUPPORTED_FILE",
			fmt.Sprintf("unsupported extension %q", ext), common.ErrUnsupportedFile)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Prepared{}, fmt.Errorf("read document: %w", err)
	}

	var res Prepared
	switch format {
	case constants.FormatPDF:
		res, err = p.preparePDF(ctx, data)
	default:
		res, err = p.prepareImage(ctx, data)
	}
	res.Duration = time.Since(start)
	return res, err
}

func (p *Preparer) preparePDF(ctx context.Context, data []byte) (Prepared, error) {
	res := Prepared{SourceType: constants.FormatPDF, Method: "pdf-raster"}

	text, pages, err := pdfTextLayer(data)
	if err != nil {
		res.Warnings = append(res.Warnings, err.Error())
	}
	res.Pages = pages

	img, rPages, rErr := renderFirstPage(data)
	if rErr != nil {
		res.Warnings = append(res.Warnings, rErr.Error())
	} else {
		if res.Pages == 0 {
			res.Pages = rPages
		}
		pngData, encErr := encodePNG(normalizeForVision(img, p.cfg.MaxEdge))
		if encErr != nil {
			res.Warnings = append(res.Warnings, encErr.Error())
		} else {
			res.PNG = pngData
		}
	}

	conf := heuristicConfidence(text)
	switch {
	case strings.TrimSpace(text) != "" && conf >= TextConfidenceThreshold:
		res.Text = text
		res.Confidence = conf
		res.Method = "pdf-text"
	case p.cfg.EnableOCR && len(res.PNG) > 0:
		ocrText, ocrConf, warns, ocrErr := p.ocrPNG(ctx, res.PNG)
		res.Warnings = append(res.Warnings, warns...)
		if ocrErr != nil {
			res.Warnings = append(res.Warnings, ocrErr.Error())
		} else {
			res.Text = ocrText
			res.Confidence = ocrConf
			res.Method = "pdf-ocr"
		}
	case strings.TrimSpace(text) != "":
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("text layer confidence %.2f below threshold", conf))
	}

	if len(res.PNG) == 0 && strings.TrimSpace(res.Text) == "" {
		return res, fmt.Errorf("pdf yielded neither image nor text")
	}
	return res, nil
}

func (p *Preparer) prepareImage(ctx context.Context, data []byte) (Prepared, error) {
	res := Prepared{SourceType: constants.FormatImage, Method: "image", Pages: 1}

	img, err := decodeImage(data)
	if err != nil {
		return res, err
	}
	pngData, err := encodePNG(normalizeForVision(img, p.cfg.MaxEdge))
	if err != nil {
		return res, err
	}
	res.PNG = pngData

	if p.cfg.EnableOCR {
		sharp, encErr := encodePNG(sharpenForOCR(img))
		if encErr != nil {
			res.Warnings = append(res.Warnings, encErr.Error())
			sharp = pngData
		}
		text, conf, warns, ocrErr := p.ocrPNG(ctx, sharp)
		res.Warnings = append(res.Warnings, warns...)
		if ocrErr != nil {
			res.Warnings = append(res.Warnings, ocrErr.Error())
		} else {
			res.Text = text
			res.Confidence = conf
			res.Method = "image-ocr"
		}
	}
	return res, nil
}
