package extraction

import (
	"log/slog"
	"strings"
	"time"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/common"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/currency"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/entity"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/validation"
)

// ExtractionResult is the full outcome of one pipeline run over a single
// document page.
type ExtractionResult struct {
	Bill    entity.ConvertedBill
	Report  entity.ValidationReport
	Origins entity.OriginMap
}

// Orchestrator sequences weak-field detection, regex fallback, vendor
// heuristics, normalization, currency conversion and amount validation.
// It is stateless and re-entrant; pages can run concurrently on the same
// instance.
type Orchestrator struct {
	converter *currency.Converter
	validator *validation.Validator
	log       *slog.Logger
	now       func() time.Time
}

func NewOrchestrator(rates currency.RateSource, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		converter: currency.NewConverter(rates),
		validator: validation.NewValidator(),
		log:       logger,
		now:       time.Now,
	}
}

// Run processes an upstream vision extraction. Only a missing or empty
// raw extraction is fatal; every other defect degrades to a weak or
// defaulted value.
func (o *Orchestrator) Run(raw *entity.RawExtraction) (*ExtractionResult, error) {
	return o.run(raw, entity.OriginAI)
}

// RunFallbackOnly assembles the raw extraction purely from OCR text and
// processes it. Fields present from the start carry regex origin.
func (o *Orchestrator) RunFallbackOnly(ocrText string) (*ExtractionResult, error) {
	return o.run(FromOCRText(ocrText), entity.OriginRegex)
}

func (o *Orchestrator) run(raw *entity.RawExtraction, base entity.FieldOrigin) (*ExtractionResult, error) {
	start := time.Now()
	if raw.IsEmpty() {
		return nil, common.NewAppError("MISSING_EXTRACTION", "no extracted data to process", common.ErrMissingExtraction)
	}

	// the incoming extraction stays untouched; fallback values land on a copy
	enriched := *raw

	weak := DetectWeakFields(&enriched)
	recovered := ExtractWeak(enriched.OCRText, weak)
	if len(recovered) > 0 {
		applyRecovered(&enriched, recovered)
		o.log.Debug("extract.fallback.applied", "fields", recoveredFields(recovered))
	}

	heuristicVendor := false
	if weak.Has(entity.FieldVendorName) && IsWeak(enriched.VendorName) && strings.TrimSpace(enriched.OCRText) != "" {
		if vendor := ExtractVendor(enriched.OCRText); vendor != "" {
			enriched.VendorName = vendor
			heuristicVendor = true
			o.log.Debug("extract.vendor.heuristic", "vendor", vendor)
		}
	}

	bill := NormalizeAt(&enriched, o.now())
	converted := o.converter.Convert(bill)
	report := o.validator.ValidateAmounts(bill)

	if converted.ExchangeRateUsed == 1.0 && converted.OriginalCurrency != "USD" {
		o.log.Warn("extract.currency.unknown", "currency", converted.OriginalCurrency)
	}

	result := &ExtractionResult{
		Bill:    converted,
		Report:  report,
		Origins: buildOrigins(raw, recovered, heuristicVendor, base),
	}

	o.log.Info("extract.run.ok",
		"elapsed_ms", time.Since(start).Milliseconds(),
		"weak_fields", len(weak),
		"recovered_fields", len(recovered),
		"vendor", converted.VendorName,
		"is_valid", report.IsValid,
	)
	return result, nil
}

func applyRecovered(raw *entity.RawExtraction, rec Recovered) {
	if v, ok := rec[entity.FieldInvoiceNumber]; ok {
		raw.InvoiceNumber = v
	}
	if v, ok := rec[entity.FieldPurchaseDate]; ok {
		raw.PurchaseDate = v
	}
	if v, ok := rec[entity.FieldCurrency]; ok {
		raw.Currency = v
	}
	if v, ok := rec[entity.FieldTotalAmount]; ok {
		raw.TotalAmount = v
	}
}

func recoveredFields(rec Recovered) []string {
	var fields []string
	for _, f := range criticalFields {
		if _, ok := rec[f]; ok {
			fields = append(fields, f)
		}
	}
	return fields
}

// buildOrigins records, per tracked field, which strategy supplied its
// final value.
func buildOrigins(raw *entity.RawExtraction, rec Recovered, heuristicVendor bool, base entity.FieldOrigin) entity.OriginMap {
	origins := entity.OriginMap{}

	assign := func(field string, present bool) {
		switch {
		case rec[field] != nil:
			origins[field] = entity.OriginRegex
		case field == entity.FieldVendorName && heuristicVendor:
			origins[field] = entity.OriginHeuristic
		case present:
			origins[field] = base
		default:
			origins[field] = entity.OriginDefault
		}
	}

	assign(entity.FieldInvoiceNumber, !IsWeak(raw.InvoiceNumber))
	assign(entity.FieldVendorName, !IsWeak(raw.VendorName))
	assign(entity.FieldPurchaseDate, !IsWeak(raw.PurchaseDate))
	assign(entity.FieldPurchaseTime, !IsWeak(raw.PurchaseTime))
	assign(entity.FieldCurrency, !IsWeak(raw.Currency))
	assign(entity.FieldTaxAmount, !IsWeak(raw.TaxAmount))
	assign(entity.FieldTotalAmount, !IsWeakAmount(raw.TotalAmount))
	assign(entity.FieldPaymentMethod, !IsWeak(raw.PaymentMethod))

	return origins
}
