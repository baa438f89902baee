package config

import "strings"

// Data item labels as the portal lists them under the foreign exchange
// (daily) menu. The on-page checkbox list is the concatenation of
// usdDataItems followed by eurDataItems; reordering either slice moves the
// checkboxes that get clicked.
var (
	usdDataItems = []string{
		"東京市場　ドル・円　スポット　9時時点",
		"東京市場　ドル・円　スポット　最高値",
		"東京市場　ドル・円　スポット　最安値",
		"東京市場　ドル・円　スポット　17時時点",
		"東京市場　ドル・円　スポット　中心相場",
		"東京市場　ドル・円　スポット出来高",
		"東京市場　ドル・円　スワップ出来高",
	}

	eurDataItems = []string{
		"東京市場　ユーロ・ドル　スポット　9時時点",
		"東京市場　ユーロ・ドル　スポット　最高値",
		"東京市場　ユーロ・ドル　スポット　最安値",
		"東京市場　ユーロ・ドル　スポット　17時時点",
		"東京市場　ユーロ・ドル　スポット出来高",
		"東京市場　ユーロ・ドル　スワップ出来高",
	}
)

// CurrencyGroups lists the currency groups in on-page order.
var CurrencyGroups = []string{"USD", "EUR"}

// DataItemLabels returns a copy of the ordered labels for a currency group,
// or nil for an unknown group.
func DataItemLabels(currency string) []string {
	var src []string
	switch strings.ToUpper(currency) {
	case "USD":
		src = usdDataItems
	case "EUR":
		src = eurDataItems
	default:
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// MasterDataItemList returns every label in the order the portal renders the
// checkbox list.
func MasterDataItemList() []string {
	var out []string
	for _, group := range CurrencyGroups {
		out = append(out, DataItemLabels(group)...)
	}
	return out
}

// MissingValueTokens are the exact cell values the portal uses for a missing
// observation. The padded variants come from the CSV itself; the bare "NA"
// and empty cell cover rows where the padding was trimmed.
var MissingValueTokens = []string{"NA    ", "NA   ", "NA", ""}
