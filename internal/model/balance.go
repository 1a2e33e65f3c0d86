package model

// TokenSymbol is the display symbol of the dashboard token.
const TokenSymbol = "$AIR"

// Balance is a wallet's token balance. Fallback marks a substituted value.
type Balance struct {
	Owner    string  `json:"owner" validate:"required"`
	Amount   float64 `json:"amount" validate:"gte=0"`
	Symbol   string  `json:"symbol"`
	Fallback bool    `json:"fallback"`
}
