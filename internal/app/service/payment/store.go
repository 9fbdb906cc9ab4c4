package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cardwave/giftpay/internal/models"
	"github.com/cardwave/giftpay/pkg/types"
)

// knownIDPrefixes are provider-specific prefixes callers sometimes leave on
// identifiers (the bot passes gateway-decorated ids straight through). They
// are stripped before lookup.
var knownIDPrefixes = []string{"plisio_", "txn_"}

// Store is the persistence boundary of the payment core. Updates are single
// atomic row writes; concurrent updates are last-write-wins except for the
// fulfillment claim and the voucher write, which are conditional.
type Store interface {
	Insert(ctx context.Context, p *models.Payment) error
	// Resolve finds a record by orderID first, then falls back to treating
	// the identifier as a gateway invoice id. Known provider prefixes are
	// stripped. Returns ErrNotFound when nothing matches.
	Resolve(ctx context.Context, id string) (*models.Payment, error)
	// Update applies the patch plus updated_at in one write.
	Update(ctx context.Context, id string, patch map[string]any) error
	// ClaimFulfillment atomically marks the record as being fulfilled.
	// Returns false when another caller already holds the claim or the
	// vouchers are already written.
	ClaimFulfillment(ctx context.Context, id string) (bool, error)
	// ReleaseFulfillment clears the claim after a failed fulfillment so an
	// operator-triggered poll can retry.
	ReleaseFulfillment(ctx context.Context, id string) error
	// SetVouchers writes the voucher list and marks the payment completed,
	// only if no vouchers were written before. Returns false when the
	// record already had vouchers.
	SetVouchers(ctx context.Context, id string, vouchers []types.VoucherDetail) (bool, error)
	// Scan lists payments for the admin surface.
	Scan(ctx context.Context, req *ScanPaymentsRequest) (*ScanPaymentsResponse, error)
}

type gormStore struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewStore(db *gorm.DB, log *zap.SugaredLogger) Store {
	return &gormStore{db: db, log: log}
}

func (s *gormStore) Insert(ctx context.Context, p *models.Payment) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// StripIDPrefix removes a known provider prefix from a payment identifier.
func StripIDPrefix(id string) string {
	for _, p := range knownIDPrefixes {
		if strings.HasPrefix(id, p) {
			return strings.TrimPrefix(id, p)
		}
	}
	return id
}

func (s *gormStore) Resolve(ctx context.Context, id string) (*models.Payment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	for _, candidate := range uniqueStrings(id, StripIDPrefix(id)) {
		for _, col := range []string{"order_id", "invoice_id"} {
			p, err := s.takeRow(ctx, col, candidate)
			if err == nil {
				return p, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("lookup payment by %s: %w", col, err)
			}
		}
	}
	return nil, ErrNotFound
}

// takeRow reads one payment as a raw row and normalizes it. Going through
// the raw row (instead of the typed model) is deliberate: rows written by
// the previous schema generation carry camelCase column names, and both
// generations must keep reading.
func (s *gormStore) takeRow(ctx context.Context, column, value string) (*models.Payment, error) {
	row := map[string]any{}
	err := s.db.WithContext(ctx).
		Table(models.Payment{}.TableName()).
		Where(fmt.Sprintf("%s = ?", column), value).
		Take(&row).Error
	if err != nil {
		return nil, err
	}
	return PaymentFromRow(row), nil
}

func (s *gormStore) Update(ctx context.Context, id string, patch map[string]any) error {
	if len(patch) == 0 {
		return nil
	}
	upd := make(map[string]any, len(patch)+1)
	for k, v := range patch {
		upd[k] = v
	}
	upd["updated_at"] = time.Now()

	res := s.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(upd)
	if res.Error != nil {
		return fmt.Errorf("update payment %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update payment %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *gormStore) ClaimFulfillment(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND fulfillment_claimed_at IS NULL AND voucher_details IS NULL", id).
		Updates(map[string]any{
			"fulfillment_claimed_at": time.Now(),
			"updated_at":             time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("claim fulfillment for %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *gormStore) ReleaseFulfillment(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND voucher_details IS NULL", id).
		Updates(map[string]any{
			"fulfillment_claimed_at": gorm.Expr("NULL"),
			"updated_at":             time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("release fulfillment for %s: %w", id, res.Error)
	}
	return nil
}

func (s *gormStore) SetVouchers(ctx context.Context, id string, vouchers []types.VoucherDetail) (bool, error) {
	body, err := json.Marshal(vouchers)
	if err != nil {
		return false, fmt.Errorf("marshal vouchers: %w", err)
	}
	res := s.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND voucher_details IS NULL", id).
		Updates(map[string]any{
			"voucher_details": body,
			"status":          types.PaymentStatusCompleted,
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("set vouchers for %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// filtersAnd is a helper to combine multiple CommonFilter into a single clause.Expression
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

// Scan implements paginated/admin listing with filters
func (s *gormStore) Scan(ctx context.Context, req *ScanPaymentsRequest) (*ScanPaymentsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Payment{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}

	var rows []*models.Payment

	q := tx.Limit(req.Size)

	if req.From > 0 {
		q = q.Offset(req.From)
	}

	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	return &ScanPaymentsResponse{Items: rows, Total: total}, nil
}

func uniqueStrings(values ...string) []string {
	out := values[:0:0]
	seen := map[string]struct{}{}
	for _, v := range values {
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
