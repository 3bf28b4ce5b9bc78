package valueobject

import (
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/crowdfunding-backend/internal/pkg/apperror"
)

// MoneyScale число знаков после запятой для всех денежных сумм.
const MoneyScale = 2

// ParseAmount разбирает положительную сумму с не более чем двумя знаками после запятой.
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "некорректная сумма")
	}
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// ValidateAmount проверяет, что сумма положительна и укладывается в копейки.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}
	if !amount.Equal(amount.Truncate(MoneyScale)) {
		return apperror.New(apperror.ErrCodeValidation, "сумма должна содержать не более двух знаков после запятой")
	}
	return nil
}

// GrossAmount форматирует сумму так, как её подписывает платёжный шлюз: "50000.00".
func GrossAmount(amount decimal.Decimal) string {
	return amount.StringFixed(MoneyScale)
}
