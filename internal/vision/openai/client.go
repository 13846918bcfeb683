package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/common"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/entity"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/vision"
)

// ExtractBill implements vision.Extractor over chat/completions. A document
// with a usable text layer goes up as plain text; image-only documents ride
// along as a base64 data URL part.
func (c *Client) ExtractBill(ctx context.Context, req vision.Request) (*entity.RawExtraction, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("vision.extract.start",
		"req_id", rid,
		"provider", "openai",
		"model", c.cfg.Model,
		"document_id", common.DocumentIDFromContext(ctx),
		"text_len", len(req.Text),
		"image_bytes", len(req.ImagePNG),
		"filename", req.Filename,
	)

	if strings.TrimSpace(req.Text) == "" && len(req.ImagePNG) == 0 {
		return nil, nil, common.InvalidInputError("no text or page image to extract from")
	}

	schema := vision.BuildBillJSONSchema()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": vision.BuildBillPrompt()},
			{"role": "user", "content": userContent(req)},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, _, httpErr := vision.SendJSON(ctx, c.httpClient, endpoint, body, headers, c.log)
	if httpErr != nil {
		c.log.Error("vision.extract.http_error",
			"req_id", rid, "error", httpErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, nil, httpErr
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("vision.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, raw, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("vision.extract.no_choices",
			"req_id", rid, "raw", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, raw, fmt.Errorf("no choices in openai response")
	}

	rawContent := []byte(vision.StripJSONFences(cc.Choices[0].Message.Content))

	// Strict validation first, one sanitize pass on failure, same as gemini.
	if err := vision.ValidateAgainstSchema(schema, rawContent); err != nil {
		cleaned, dropped, sErr := vision.SanitizeRawPayload(rawContent, c.log)
		if sErr != nil {
			c.log.Error("vision.extract.sanitize_failed",
				"req_id", rid, "error", sErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil, rawContent, fmt.Errorf("sanitize failed: %w", sErr)
		}
		if vErr := vision.ValidateAgainstSchema(schema, cleaned); vErr != nil {
			c.log.Error("vision.extract.schema_validation_failed",
				"req_id", rid, "error", vErr, "content", string(cleaned),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil, cleaned, fmt.Errorf("schema validation failed: %w", vErr)
		}
		c.log.Warn("vision.extract.lenient_sanitize_applied",
			"req_id", rid, "dropped", dropped,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		rawContent = cleaned
	}

	out, err := vision.DecodeRawExtraction(rawContent)
	if err != nil {
		c.log.Error("vision.extract.unmarshal_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, rawContent, err
	}

	c.log.Info("vision.extract.ok",
		"req_id", rid,
		"ocr_chars", len(out.OCRText),
		"items", len(out.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, rawContent, nil
}

func userContent(req vision.Request) any {
	if txt := strings.TrimSpace(req.Text); txt != "" {
		var b strings.Builder
		b.WriteString("Filename: ")
		b.WriteString(req.Filename)
		b.WriteString("\n\nDocument text (first ~4k chars):\n")
		if len(txt) > 4000 {
			b.WriteString(txt[:4000])
		} else {
			b.WriteString(txt)
		}
		return b.String()
	}
	return []map[string]any{
		{"type": "text", "text": "Filename: " + req.Filename},
		{"type": "image_url", "image_url": map[string]any{"url": imageDataURL(req.ImagePNG)}},
	}
}

func imageDataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
