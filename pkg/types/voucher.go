package types

// VoucherDetail is one redeemable gift-card code minted by the partner order
// API. The raw partner payload is kept alongside the parsed fields because
// the partner adds fields without notice.
// Field names follow the partner's wire convention so stored voucher JSON
// round-trips unchanged.
type VoucherDetail struct {
	ID         string         `json:"id"`
	CardType   string         `json:"cardType"`
	CardNumber string         `json:"cardNumber"`
	CardPin    string         `json:"cardPin"`
	ValidTill  string         `json:"validTill"`
	Amount     string         `json:"amount"`
	Raw        map[string]any `json:"raw,omitempty"`
}
