package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/cardwave/giftpay/internal/app/service/rates"
	"github.com/cardwave/giftpay/internal/models"
	"github.com/cardwave/giftpay/internal/platform/plisio"
	"github.com/cardwave/giftpay/pkg/config"
	"github.com/cardwave/giftpay/pkg/logctx"
	"github.com/cardwave/giftpay/pkg/tool"
	"github.com/cardwave/giftpay/pkg/types"
)

const (
	defaultCurrency = "USDT"
	orderIDPrefix   = "order_"
	sourceSystem    = "gift-card-store"
)

// Service is the payment lifecycle manager. All state lives in the store;
// the service itself is stateless and safe for concurrent use.
type Service struct {
	cfg       *config.Config
	log       *zap.SugaredLogger
	store     Store
	gateway   Gateway
	fulfiller Fulfiller
	converter *rates.Converter
	cblog     CallbackRecorder
}

func NewService(cfg *config.Config, log *zap.SugaredLogger, store Store, gateway Gateway, fulfiller Fulfiller, converter *rates.Converter, cblog CallbackRecorder) Manager {
	return &Service{
		cfg:       cfg,
		log:       log,
		store:     store,
		gateway:   gateway,
		fulfiller: fulfiller,
		converter: converter,
		cblog:     cblog,
	}
}

func (s *Service) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*PaymentSummary, error) {
	if req == nil || req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	currency := req.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	localAmount := req.LocalAmount
	if localAmount.IsZero() {
		// Settlement currencies are dollar-pegged; derive the fiat total
		// through the converter when the caller did not supply one.
		localAmount = s.converter.Convert(req.Amount, "USD", "INR").Round(rates.FiatPlaces)
	}
	if localAmount.IsNegative() {
		return nil, fmt.Errorf("%w: local amount must be non-negative", ErrValidation)
	}

	orderID := orderIDPrefix + tool.GenerateUUIDV7()
	email := req.Email
	if email == "" {
		email = fmt.Sprintf("user-%s@giftcardstore.com", req.UserID)
	}

	invoice, err := s.gateway.CreateInvoice(ctx, &plisio.CreateInvoiceRequest{
		OrderNumber: orderID,
		OrderName:   "Gift Card Purchase - " + orderID,
		Amount:      req.Amount,
		Currency:    currency,
		Email:       email,
		Description: fmt.Sprintf("Gift Card Purchase - %s %s", req.Amount.String(), currency),
	})
	if err != nil {
		// Nothing persisted on gateway failure: no partial state.
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	metadata := datatypes.JSONMap{"source": sourceSystem}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	if invoice.TotalSum != "" {
		metadata["invoice_total_sum"] = invoice.TotalSum
	}

	record := &models.Payment{
		ID:          tool.GenerateUUIDV7(),
		OrderID:     orderID,
		UserID:      req.UserID,
		Amount:      req.Amount.String(),
		LocalAmount: localAmount.String(),
		Currency:    currency,
		Status:      types.PaymentStatusNew,
		InvoiceID:   invoice.TxnID,
		InvoiceURL:  invoice.InvoiceURL,
		Extra: datatypes.NewJSONType(&models.PaymentExtra{
			Source:    sourceSystem,
			BrandID:   req.BrandID,
			ProductID: req.ProductID,
			Email:     req.Email,
		}),
		Metadata: metadata,
	}
	if err := s.store.Insert(ctx, record); err != nil {
		// The invoice exists on the gateway side; callers must be able to
		// tell this apart from a gateway rejection.
		logctx.FromCtx(ctx, s.log).Errorw("payment persisted failed after invoice creation",
			"order_id", orderID, "invoice_id", invoice.TxnID, "err", err)
		return nil, fmt.Errorf("%w: invoice %s created but record not persisted: %v", ErrStore, invoice.TxnID, err)
	}

	return &PaymentSummary{
		OrderID:    orderID,
		InvoiceID:  invoice.TxnID,
		InvoiceURL: invoice.InvoiceURL,
		Amount:     record.Amount,
		Currency:   currency,
		Status:     record.Status,
	}, nil
}

func (s *Service) GetPaymentStatus(ctx context.Context, orderID string) (*models.Payment, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrValidation)
	}
	record, err := s.store.Resolve(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if record.InvoiceID == "" {
		return record, nil
	}

	info, err := s.gateway.QueryStatus(ctx, record.InvoiceID)
	if err != nil {
		// Freshness is best-effort on the poll path: serve the last known
		// local state instead of failing the read.
		logctx.FromCtx(ctx, s.log).Warnw("gateway status query failed, serving stored record",
			"order_id", record.OrderID, "invoice_id", record.InvoiceID, "err", err)
		return record, nil
	}

	return s.applyGatewayStatus(ctx, record, info.Status, info.Raw)
}

func (s *Service) HandlePaymentCallback(ctx context.Context, payload map[string]any) (*models.Payment, error) {
	log := logctx.FromCtx(ctx, s.log)

	if s.cfg.Gateway.VerifyCallbacks && !s.gateway.VerifyCallback(payload) {
		log.Warnw("callback rejected: bad or missing signature")
		return nil, fmt.Errorf("%w: signature verification failed", ErrInvalidCallback)
	}

	orderNumber, _ := payload["order_number"].(string)
	if orderNumber == "" {
		// Some gateway versions only echo the transaction id.
		orderNumber, _ = payload["txn_id"].(string)
	}
	rawStatus, _ := payload["status"].(string)
	if orderNumber == "" {
		log.Errorw("callback rejected: missing order_number")
		return nil, fmt.Errorf("%w: missing order_number", ErrInvalidCallback)
	}

	payloadJSON, _ := json.Marshal(payload)
	s.cblog.Save(ctx, &models.CallbackLog{
		OrderID:   orderNumber,
		TraceID:   traceID(ctx),
		RawStatus: rawStatus,
		Payload:   datatypes.JSON(payloadJSON),
		Status:    models.CallbackLogStatusReceived,
	})

	record, err := s.store.Resolve(ctx, orderNumber)
	if err != nil {
		s.saveCallbackResult(ctx, orderNumber, rawStatus, payloadJSON, err)
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	// Push payloads are authoritative once verified; the raw status string
	// is normalized and persisted even when it is outside the known set.
	record, err = s.applyGatewayStatus(ctx, record, types.NormalizePaymentStatus(rawStatus), payload)
	s.saveCallbackResult(ctx, orderNumber, rawStatus, payloadJSON, err)
	return record, err
}

func (s *Service) ScanPayments(ctx context.Context, req *ScanPaymentsRequest) (*ScanPaymentsResponse, error) {
	return s.store.Scan(ctx, req)
}

// applyGatewayStatus reconciles the stored record with a gateway-reported
// status: persists drift, enforces monotonicity toward terminal states, and
// triggers at-most-once fulfillment on success.
func (s *Service) applyGatewayStatus(ctx context.Context, record *models.Payment, status types.PaymentStatus, raw map[string]any) (*models.Payment, error) {
	log := logctx.FromCtx(ctx, s.log)

	if status != "" && status != record.Status {
		if record.Status.IsTerminal() && status.IsInitial() {
			// Terminal states never resurrect; the gateway listing can lag
			// behind its own callbacks.
			log.Warnw("ignoring status regression",
				"order_id", record.OrderID, "stored", record.Status, "reported", status)
		} else {
			patch := map[string]any{"status": status}
			if amt := gatewayAmount(raw); amt != "" && amt != record.Amount {
				// The gateway-reported amount at confirmation time is the
				// source of truth for what was actually received; the
				// invoiced amount is never rewritten.
				meta := record.Metadata
				if meta == nil {
					meta = datatypes.JSONMap{}
				}
				meta["gateway_amount"] = amt
				patch["metadata"] = meta
				record.Metadata = meta
			}
			if err := s.store.Update(ctx, record.ID, patch); err != nil {
				return record, fmt.Errorf("%w: persist status %s: %v", ErrStore, status, err)
			}
			record.Status = status
		}
	}

	if record.Status.IsSuccess() && !record.HasVouchers() {
		if err := s.triggerFulfillment(ctx, record); err != nil {
			// The payment stays confirmed; the caller decides how to retry.
			return record, err
		}
	}
	return record, nil
}

// triggerFulfillment claims the record, places the partner order and writes
// the vouchers. The claim is a conditional update, so concurrent polls for
// the same order cannot both reach the partner API.
func (s *Service) triggerFulfillment(ctx context.Context, record *models.Payment) error {
	log := logctx.FromCtx(ctx, s.log)

	claimed, err := s.store.ClaimFulfillment(ctx, record.ID)
	if err != nil {
		return fmt.Errorf("%w: claim: %v", ErrStore, err)
	}
	if !claimed {
		log.Infow("fulfillment already claimed or done", "order_id", record.OrderID)
		return nil
	}

	vouchers, err := s.fulfiller.Fulfill(ctx, record)
	if err != nil {
		if relErr := s.store.ReleaseFulfillment(ctx, record.ID); relErr != nil {
			log.Errorw("failed to release fulfillment claim", "order_id", record.OrderID, "err", relErr)
		}
		log.Errorw("fulfillment failed", "order_id", record.OrderID, "err", err)
		return fmt.Errorf("%w: %v", ErrFulfillment, err)
	}
	if len(vouchers) == 0 {
		if relErr := s.store.ReleaseFulfillment(ctx, record.ID); relErr != nil {
			log.Errorw("failed to release fulfillment claim", "order_id", record.OrderID, "err", relErr)
		}
		return fmt.Errorf("%w: partner returned no vouchers", ErrFulfillment)
	}

	written, err := s.store.SetVouchers(ctx, record.ID, vouchers)
	if err != nil {
		return fmt.Errorf("%w: persist vouchers: %v", ErrStore, err)
	}
	if !written {
		// Lost the set-once race despite the claim; keep the stored copy.
		log.Warnw("vouchers already written by another caller", "order_id", record.OrderID)
		return nil
	}

	body, _ := json.Marshal(vouchers)
	record.VoucherDetails = datatypes.JSON(body)
	record.Status = types.PaymentStatusCompleted
	log.Infow("payment fulfilled", "order_id", record.OrderID, "vouchers", len(vouchers))
	return nil
}

func (s *Service) saveCallbackResult(ctx context.Context, orderID, rawStatus string, payload []byte, handleErr error) {
	status := models.CallbackLogStatusHandled
	result := map[string]any{"ok": true}
	if handleErr != nil {
		status = models.CallbackLogStatusHandleFailed
		result = map[string]any{"ok": false, "error": handleErr.Error()}
	}
	resJSON, _ := json.Marshal(result)
	res := datatypes.JSON(resJSON)
	s.cblog.Save(ctx, &models.CallbackLog{
		OrderID:   orderID,
		TraceID:   traceID(ctx),
		RawStatus: rawStatus,
		Payload:   datatypes.JSON(payload),
		Result:    &res,
		Status:    status,
	})
}

// gatewayAmount pulls the received amount out of a raw gateway payload.
func gatewayAmount(raw map[string]any) string {
	if raw == nil {
		return ""
	}
	for _, key := range []string{"amount", "invoice_total_sum"} {
		switch v := raw[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return decimal.NewFromFloat(v).String()
		}
	}
	return ""
}

func traceID(ctx context.Context) string {
	if v, ok := ctx.Value("traceID").(string); ok {
		return v
	}
	return ""
}
