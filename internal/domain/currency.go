package domain

// Currency identifies which settlement rail an item or auction is priced in.
type Currency string

const (
	// CurrencyNative settles through direct native value transfers.
	CurrencyNative Currency = "native"
	// CurrencyToken settles through the fungible-token ledger.
	CurrencyToken Currency = "token"
)

// Valid reports whether c is a known currency.
func (c Currency) Valid() bool {
	return c == CurrencyNative || c == CurrencyToken
}
