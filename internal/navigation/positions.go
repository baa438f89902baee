package navigation

import (
	"fmt"

	"bojfx/internal/config"
	"bojfx/pkg/contracts/domain"
)

// GroupOffset returns the master list position of a currency group's first
// data item. Groups are laid out in config.CurrencyGroups order.
func GroupOffset(currency domain.Currency) (int, error) {
	offset := 0
	for _, group := range config.CurrencyGroups {
		if group == currency.String() {
			return offset, nil
		}
		offset += len(config.DataItemLabels(group))
	}
	return 0, fmt.Errorf("unknown currency group %q", currency)
}

// PagePosition maps the index of a data item within its currency group to
// its 0-based position in the portal's master checkbox list.
func PagePosition(currency domain.Currency, index int) (int, error) {
	offset, err := GroupOffset(currency)
	if err != nil {
		return 0, err
	}
	n := len(config.DataItemLabels(currency.String()))
	if index < 0 || index >= n {
		return 0, fmt.Errorf("item index %d out of range for %s group of %d", index, currency, n)
	}
	return offset + index, nil
}
