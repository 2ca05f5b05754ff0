package agent

import (
	"strconv"
	"strings"
)

// parseBudget splits a canonical budget slot value ("500 GBP") into amount
// and currency. A bare number defaults to GBP, the dominant listing currency.
func parseBudget(value string) (float64, string) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return 0, ""
	}

	amount, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, ""
	}

	currency := "GBP"
	if len(fields) > 1 {
		currency = strings.ToUpper(fields[1])
	}
	return amount, currency
}
