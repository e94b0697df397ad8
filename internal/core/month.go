package core

import (
	"fmt"
	"strings"
	"time"
)

// MonthKey is a YYYY-MM bucket used for month-scoped views.
type MonthKey string

const monthLayout = "2006-01"

// CurrentMonth returns the bucket containing now (UTC).
func CurrentMonth(now time.Time) MonthKey {
	return MonthKey(now.UTC().Format(monthLayout))
}

// ParseMonthKey validates a YYYY-MM string.
func ParseMonthKey(s string) (MonthKey, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(monthLayout, s); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthKey(s), nil
}

func (m MonthKey) String() string { return string(m) }

// Suggested transaction categories.
const (
	CategoryFood             = "Alimentação"
	CategoryTransport        = "Transporte"
	CategoryLeisure          = "Lazer"
	CategoryEducation        = "Educação"
	CategoryHealth           = "Saúde"
	CategoryHousing          = "Moradia"
	CategorySalary           = "Salário"
	CategoryContractorSalary = "Salário PJ"
	CategoryOther            = "Outros"

	// CategorySharedDebt labels synthesized ledger settlement rows.
	CategorySharedDebt = "Dívida Compartilhada"
)

// Categories is the suggested set offered by the transaction form.
var Categories = []string{
	CategoryFood,
	CategoryTransport,
	CategoryLeisure,
	CategoryEducation,
	CategoryHealth,
	CategoryHousing,
	CategorySalary,
	CategoryContractorSalary,
	CategoryOther,
}
