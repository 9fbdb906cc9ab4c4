package payment

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gorm.io/datatypes"

	"github.com/cardwave/giftpay/internal/models"
	"github.com/cardwave/giftpay/pkg/types"
)

// Two schema generations coexist at the storage boundary: the current one
// uses snake_case column names, the previous one camelCase. PaymentFromRow
// accepts either, and absent fields default to zero values instead of
// failing the read.

// rowField resolves one logical field against both naming conventions.
type rowField struct{ snake, camel string }

var paymentRowFields = struct {
	id, orderID, userID, amount, localAmount, currency, status,
	invoiceID, invoiceURL, voucherDetails, fulfillmentClaimedAt,
	extra, metadata, createdAt, updatedAt rowField
}{
	id:                   rowField{"id", "id"},
	orderID:              rowField{"order_id", "orderId"},
	userID:               rowField{"user_id", "userId"},
	amount:               rowField{"amount", "amount"},
	localAmount:          rowField{"local_amount", "localAmount"},
	currency:             rowField{"currency", "currency"},
	status:               rowField{"status", "status"},
	invoiceID:            rowField{"invoice_id", "invoiceId"},
	invoiceURL:           rowField{"invoice_url", "invoiceUrl"},
	voucherDetails:       rowField{"voucher_details", "voucherDetails"},
	fulfillmentClaimedAt: rowField{"fulfillment_claimed_at", "fulfillmentClaimedAt"},
	extra:                rowField{"extra", "extra"},
	metadata:             rowField{"metadata", "metadata"},
	createdAt:            rowField{"created_at", "createdAt"},
	updatedAt:            rowField{"updated_at", "updatedAt"},
}

func (f rowField) lookup(row map[string]any) (any, bool) {
	if v, ok := row[f.snake]; ok && v != nil {
		return v, true
	}
	if v, ok := row[f.camel]; ok && v != nil {
		return v, true
	}
	return nil, false
}

// PaymentFromRow builds a Payment out of a raw storage row, normalizing both
// column naming conventions and defaulting missing fields to zero values.
func PaymentFromRow(row map[string]any) *models.Payment {
	if row == nil {
		return nil
	}
	f := paymentRowFields
	p := &models.Payment{
		ID:          rowString(row, f.id),
		OrderID:     rowString(row, f.orderID),
		UserID:      rowString(row, f.userID),
		Amount:      rowString(row, f.amount),
		LocalAmount: rowString(row, f.localAmount),
		Currency:    rowString(row, f.currency),
		Status:      types.PaymentStatus(rowString(row, f.status)),
		InvoiceID:   rowString(row, f.invoiceID),
		InvoiceURL:  rowString(row, f.invoiceURL),
	}
	if b := rowBytes(row, f.voucherDetails); len(b) > 0 {
		p.VoucherDetails = datatypes.JSON(b)
	}
	if t, ok := rowTime(row, f.fulfillmentClaimedAt); ok {
		p.FulfillmentClaimedAt = &t
	}
	if b := rowBytes(row, f.extra); len(b) > 0 {
		var extra models.PaymentExtra
		if json.Unmarshal(b, &extra) == nil {
			p.Extra = datatypes.NewJSONType(&extra)
		}
	}
	if b := rowBytes(row, f.metadata); len(b) > 0 {
		meta := datatypes.JSONMap{}
		if json.Unmarshal(b, &meta) == nil {
			p.Metadata = meta
		}
	}
	if t, ok := rowTime(row, f.createdAt); ok {
		p.CreatedAt = t
	}
	if t, ok := rowTime(row, f.updatedAt); ok {
		p.UpdatedAt = t
	}
	return p
}

func rowString(row map[string]any, f rowField) string {
	v, ok := f.lookup(row)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		// Numeric amounts from the legacy schema; format without exponent.
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func rowBytes(row map[string]any, f rowField) []byte {
	v, ok := f.lookup(row)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []byte:
		return t
	case string:
		return []byte(t)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		return b
	default:
		return nil
	}
}

func rowTime(row map[string]any, f rowField) (time.Time, bool) {
	v, ok := f.lookup(row)
	if !ok {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
