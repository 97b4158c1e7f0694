package catalog

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PriceOnRequest is shown for items without a price
const PriceOnRequest = "가격 문의"

var krw = message.NewPrinter(language.Korean)

// FormatPrice renders a KRW price with digit grouping, e.g. ₩299,000
func FormatPrice(price *int64) string {
	if price == nil || *price == 0 {
		return PriceOnRequest
	}
	if *price < 0 {
		return krw.Sprintf("-₩%d", -*price)
	}
	return krw.Sprintf("₩%d", *price)
}
