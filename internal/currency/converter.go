package currency

import (
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/entity"
	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/utils"
)

// Converter adds USD-denominated copies of a bill's headline figures.
type Converter struct {
	rates RateSource
}

// NewConverter builds a converter over the given rate source, falling
// back to the built-in table when nil.
func NewConverter(rates RateSource) *Converter {
	if rates == nil {
		rates = DefaultRates()
	}
	return &Converter{rates: rates}
}

// Convert never alters the original-currency fields. An unknown currency
// code is not an error: conversion proceeds with rate 1.0, and the rate
// actually used is recorded so callers can spot it.
func (c *Converter) Convert(bill entity.NormalizedBill) entity.ConvertedBill {
	rate, ok := c.rates.Rate(bill.Currency)
	if !ok {
		rate = 1.0
	}
	return entity.ConvertedBill{
		NormalizedBill:   bill,
		TotalAmountUSD:   utils.Round2(bill.TotalAmount * rate),
		TaxAmountUSD:     utils.Round2(bill.TaxAmount * rate),
		OriginalCurrency: bill.Currency,
		ExchangeRateUsed: rate,
	}
}
