package constants

import (
	"strings"
)

type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "CASH"
	PaymentCard       PaymentMethod = "CARD"
	PaymentUPI        PaymentMethod = "UPI"
	PaymentNetBanking PaymentMethod = "NET BANKING"
	PaymentWallet     PaymentMethod = "WALLET"
	PaymentOther      PaymentMethod = "OTHER"
)

var allPaymentMethods = []PaymentMethod{
	PaymentCash,
	PaymentCard,
	PaymentUPI,
	PaymentNetBanking,
	PaymentWallet,
	PaymentOther,
}

func PaymentMethodStrings() []string {
	result := make([]string, len(allPaymentMethods))
	for i, m := range allPaymentMethods {
		result[i] = string(m)
	}
	return result
}

func CanonicalPaymentMethod(input string) (PaymentMethod, bool) {
	if input == "" {
		return PaymentOther, false
	}

	normalized := strings.ToUpper(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]PaymentMethod{
		"CREDIT":      PaymentCard,
		"DEBIT":       PaymentCard,
		"CREDIT CARD": PaymentCard,
		"DEBIT CARD":  PaymentCard,
		"VISA":        PaymentCard,
		"MASTERCARD":  PaymentCard,
		"GPAY":        PaymentWallet,
		"PAYTM":       PaymentWallet,
		"PHONEPE":     PaymentWallet,
		"NETBANKING":  PaymentNetBanking,
		"ONLINE":      PaymentNetBanking,
	}

	if m, ok := synonyms[normalized]; ok {
		return m, true
	}

	// check if it matches any canonical method string
	for _, m := range allPaymentMethods {
		if normalized == string(m) {
			return m, true
		}
	}

	return PaymentOther, false
}
