// Package utils provides small helpers shared across the module: address
// comparisons, hex formatting and ether unit conversions.
package utils

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Ethereum address constants
var (
	// NullEthereumAddress is the null Ethereum address without the 0x prefix
	NullEthereumAddress = "0000000000000000000000000000000000000000"

	// NullEthereumAddressHex is the null Ethereum address with the 0x prefix
	NullEthereumAddressHex = fmt.Sprintf("0x%s", NullEthereumAddress)
)

// AreAddressesEqual compares two Ethereum addresses for equality, ignoring case.
func AreAddressesEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}

// ConvertBytesToString converts a byte array to a hexadecimal string with 0x prefix.
func ConvertBytesToString(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// Denomination exponents relative to wei.
const (
	GweiDecimals  = 9
	EtherDecimals = 18
)

// WeiToEther converts a wei amount to a decimal ether amount without
// precision loss.
func WeiToEther(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -EtherDecimals)
}

// WeiToGwei converts a wei amount to a decimal gwei amount.
func WeiToGwei(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -GweiDecimals)
}

// EtherToWei converts a decimal ether amount to wei. Amounts with more
// than 18 fractional digits do not map to a whole number of wei and are
// rejected.
func EtherToWei(ether decimal.Decimal) (*big.Int, error) {
	shifted := ether.Shift(EtherDecimals)
	if !shifted.IsInteger() {
		return nil, errors.Errorf("%s ether is not a whole number of wei", ether)
	}
	return shifted.BigInt(), nil
}

// GweiToWei converts a decimal gwei amount to wei.
func GweiToWei(gwei decimal.Decimal) (*big.Int, error) {
	shifted := gwei.Shift(GweiDecimals)
	if !shifted.IsInteger() {
		return nil, errors.Errorf("%s gwei is not a whole number of wei", gwei)
	}
	return shifted.BigInt(), nil
}
