package poolprocessor

import (
	"math/big"
	"strconv"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/usezoracle/tba-be/internal/currency"
	"github.com/usezoracle/tba-be/internal/domain"
)

// sqrtPriceX96For1 is floor(sqrt(1) * 2^96), the canonical 1:1 tick-0 value.
var sqrtPriceX96For1 = new(big.Int).Lsh(big.NewInt(1), 96)

func TestDerivePricesEqualDecimalsOneToOne(t *testing.T) {
	c0ToC1, c1ToC0 := derivePrices(sqrtPriceX96For1, 18, 18)
	assert.Equal(t, "1.00000", c0ToC1)
	assert.Equal(t, "1.00000", c1ToC0)
}

func TestDerivePricesAdjustsForDecimalDifference(t *testing.T) {
	// Equal decimals price out at 1; an 18 vs 6 decimals gap should scale
	// the raw 1:1 price by 10^12 in the c0->c1 direction.
	equalC0ToC1, _ := derivePrices(sqrtPriceX96For1, 18, 18)
	scaledC0ToC1, _ := derivePrices(sqrtPriceX96For1, 18, 6)

	equalVal, err := strconv.ParseFloat(equalC0ToC1, 64)
	require.NoError(t, err)
	scaledVal, err := strconv.ParseFloat(scaledC0ToC1, 64)
	require.NoError(t, err)

	assert.InEpsilon(t, equalVal*1e12, scaledVal, 1e-6)
}

func TestRoundSignificantPreservesMagnitude(t *testing.T) {
	f := new(big.Float).SetFloat64(0.0005)
	out := roundSignificant(f, 6)
	val, err := strconv.ParseFloat(out, 64)
	require.NoError(t, err)
	assert.InEpsilon(t, 0.0005, val, 1e-3)
}

func TestRoundSignificantSmallValuePinnedDecimalForm(t *testing.T) {
	f := new(big.Float).SetFloat64(0.0005)
	assert.Equal(t, "0.000500", roundSignificant(f, 6))
}

func TestRoundSignificantLargeValueKeepsAllSignificantDigits(t *testing.T) {
	f := new(big.Float).SetFloat64(123.456789)
	assert.Equal(t, "123.457", roundSignificant(f, 6))
}

func TestRoundSignificantZero(t *testing.T) {
	assert.Equal(t, "0", roundSignificant(new(big.Float), 6))
}

func TestPow10(t *testing.T) {
	assert.Equal(t, 1000.0, pow10(3))
	assert.Equal(t, 0.001, pow10(-3))
	assert.Equal(t, 1.0, pow10(0))
}

func nativeCurrency() currency.Currency {
	return currency.Currency{Kind: currency.KindNative}
}

func fungibleCurrency(addr string) currency.Currency {
	return currency.Currency{Kind: currency.KindFungible, Address: common.HexToAddress(addr), Decimals: 18, Symbol: "TKN"}
}

func TestClassifyPairedWhenCurrency0IsBase(t *testing.T) {
	base := map[string]struct{}{currency.ZeroAddress.Hex(): {}}
	c0 := nativeCurrency()
	c1 := fungibleCurrency("0x000000000000000000000000000000000000aaaa")
	appType, token, price := classify(domain.PoolKey{}, c0, c1, "2.0", "0.5", base)
	assert.Equal(t, domain.AppTypePaired, appType)
	assert.Equal(t, c1.Address, token.Address)
	assert.Equal(t, "2.0", price)
}

func TestClassifyPairedWhenCurrency1IsBase(t *testing.T) {
	addr := "0x000000000000000000000000000000000000bbbb"
	base := map[string]struct{}{addr: {}}
	c0 := fungibleCurrency("0x000000000000000000000000000000000000cccc")
	c1 := fungibleCurrency(addr)
	appType, token, price := classify(domain.PoolKey{}, c0, c1, "2.0", "0.5", base)
	assert.Equal(t, domain.AppTypePaired, appType)
	assert.Equal(t, c0.Address, token.Address)
	assert.Equal(t, "0.5", price)
}

func TestClassifyPrimaryWhenNeitherIsBase(t *testing.T) {
	base := map[string]struct{}{}
	c0 := fungibleCurrency("0x000000000000000000000000000000000000dddd")
	c1 := fungibleCurrency("0x000000000000000000000000000000000000eeee")
	appType, token, price := classify(domain.PoolKey{}, c0, c1, "3.0", "0.33", base)
	assert.Equal(t, domain.AppTypePrimary, appType)
	assert.Equal(t, c0.Address, token.Address)
	assert.Equal(t, "3.0", price)
}

func TestClassifyTieBreaksToCurrency1(t *testing.T) {
	addr0 := "0x000000000000000000000000000000000000000a"
	addr1 := "0x000000000000000000000000000000000000000b"
	base := map[string]struct{}{addr0: {}, addr1: {}}
	c0 := fungibleCurrency(addr0)
	c1 := fungibleCurrency(addr1)
	appType, token, _ := classify(domain.PoolKey{}, c0, c1, "1.0", "1.0", base)
	assert.Equal(t, domain.AppTypePaired, appType)
	assert.Equal(t, c1.Address, token.Address)
}

func TestAddressOfNativeReturnsZeroAddress(t *testing.T) {
	assert.Equal(t, currency.ZeroAddress.Hex(), addressOf(nativeCurrency()))
}

func TestDecimalsOfNativeIs18(t *testing.T) {
	assert.Equal(t, uint8(18), decimalsOf(nativeCurrency()))
}
