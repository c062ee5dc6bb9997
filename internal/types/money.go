// README: Common money value object used across modules.
package types

// Money is an amount in currency minor units (e.g. cents).
type Money struct {
	Amount   int64
	Currency string
}
