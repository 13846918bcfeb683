package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/common"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/entity"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/vision"
)

// ExtractBill implements vision.Extractor. The page image goes up as an
// inline PNG part together with the prompt; the response is validated
// strictly first, then sanitized once and re-validated before decoding.
func (c *Client) ExtractBill(ctx context.Context, req vision.Request) (*entity.RawExtraction, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("vision.extract.start",
		"req_id", rid,
		"provider", "gemini",
		"model", c.cfg.Model,
		"document_id", common.DocumentIDFromContext(ctx),
		"image_bytes", len(req.ImagePNG),
		"filename", req.Filename,
	)

	if len(req.ImagePNG) == 0 {
		return nil, nil, common.InvalidInputError("no page image to extract from")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.model.GenerateContent(ctx,
		genai.ImageData("png", req.ImagePNG),
		genai.Text(vision.BuildBillPrompt()),
	)
	if err != nil {
		c.log.Error("vision.extract.request_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, nil, fmt.Errorf("gemini generate: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		c.log.Error("vision.extract.empty_response",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, nil, fmt.Errorf("empty gemini response")
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		c.log.Warn("vision.extract.truncated",
			"req_id", rid, "max_output_tokens", c.cfg.MaxOutputTokens)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	rawContent := []byte(vision.StripJSONFences(b.String()))

	schema := vision.BuildBillJSONSchema()
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

	raw, err := vision.DecodeRawExtraction(rawContent)
	if err != nil {
		c.log.Error("vision.extract.unmarshal_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, rawContent, err
	}

	attrs := []any{
		"req_id", rid,
		"ocr_chars", len(raw.OCRText),
		"items", len(raw.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	}
	if u := resp.UsageMetadata; u != nil {
		attrs = append(attrs,
			"prompt_tokens", u.PromptTokenCount,
			"output_tokens", u.CandidatesTokenCount,
			"total_tokens", u.TotalTokenCount,
		)
	}
	c.log.Info("vision.extract.ok", attrs...)
	return raw, rawContent, nil
}
