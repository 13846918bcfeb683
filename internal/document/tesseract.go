package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ocrPNG writes the prepared image next to nothing else in a temp dir and
// runs tesseract over it. Returns recognised text, blended confidence and
// warnings.
func (p *Preparer) ocrPNG(ctx context.Context, pngData []byte) (string, float32, []string, error) {
	tmpDir, err := os.MkdirTemp("", "digitizer-ocr-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			p.logger.Warn("temp dir cleanup failed", "dir", tmpDir, "error", rmErr)
		}
	}()

	path := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(path, pngData, 0o600); err != nil {
		return "", 0, nil, err
	}

	txt, warns, err := p.tesseractText(ctx, path)
	if err != nil {
		return "", 0, warns, err
	}

	ocrConf, w2, tsvErr := p.tesseractTSVConfidence(ctx, path)
	warns = append(warns, w2...)
	if tsvErr != nil {
		warns = append(warns, tsvErr.Error())
	}

	heur := heuristicConfidence(txt)
	var conf float32
	if ocrConf > 0 {
		conf = 0.7*ocrConf + 0.3*heur
	} else {
		conf = heur
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return txt, conf, warns, nil
}

func (p *Preparer) tesseractText(ctx context.Context, path string) (string, []string, error) {
	args := []string{path, "stdout", "-l", p.cfg.TesseractLang}
	if p.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", p.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := p.runner.Run(ctx, p.cfg.Tesseract, args...)
	if err != nil {
		return "", []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil, nil
}

// tesseractTSVConfidence runs tesseract in TSV mode and returns the mean
// word confidence in 0..1. The conf column sits second to last, before the
// recognised text.
func (p *Preparer) tesseractTSVConfidence(ctx context.Context, path string) (float32, []string, error) {
	args := []string{path, "stdout", "-l", p.cfg.TesseractLang}
	if p.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(p.cfg.PSM))
	}
	if p.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(p.cfg.OEM))
	}
	if p.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", p.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := p.runner.Run(ctx, p.cfg.Tesseract, args...)
	if err != nil {
		return 0, []string{string(errb)}, fmt.Errorf("tesseract tsv: %w", err)
	}

	var sum, n float64
	for i, ln := range strings.Split(string(out), "\n") {
		if i == 0 || len(ln) == 0 {
			continue // header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := cols[len(cols)-2]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, nil, nil
	}
	return float32(sum / n / 100.0), nil, nil
}
