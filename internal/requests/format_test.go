package requests

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "Frw 1,234,568", FormatMoney(1234567.6, true))
	assert.Equal(t, "Frw 0", FormatMoney(0, true))
	assert.Equal(t, "Frw 950", FormatMoney(950, true))
	assert.Equal(t, "—", FormatMoney(0, false))
	assert.Equal(t, "—", FormatMoney(math.NaN(), true))
}

func TestFormatMoneyCompact(t *testing.T) {
	assert.Equal(t, "Frw 3M", FormatMoneyCompact(2_600_000, true))
	assert.Equal(t, "Frw 2K", FormatMoneyCompact(1_500, true))
	assert.Equal(t, "Frw 950", FormatMoneyCompact(950, true))
	assert.Equal(t, "—", FormatMoneyCompact(10, false))
}

func TestFormatCompactNumber(t *testing.T) {
	assert.Equal(t, "0", FormatCompactNumber(0))
	assert.Equal(t, "950", FormatCompactNumber(950))
	assert.Equal(t, "2K", FormatCompactNumber(1_500))
	assert.Equal(t, "1M", FormatCompactNumber(1_000_000))
	assert.Equal(t, "—", FormatCompactNumber(math.Inf(1)))
}

func TestFormatApprovalLevels(t *testing.T) {
	one, two := 1, 2
	assert.Equal(t, "—", FormatApprovalLevels(nil, nil))
	assert.Equal(t, "Level 1", FormatApprovalLevels(&one, nil))
	assert.Equal(t, "1 / 2", FormatApprovalLevels(&one, &two))
	assert.Equal(t, "0 / 2", FormatApprovalLevels(nil, &two))
}
