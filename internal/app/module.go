package app

import (
	"time"

	"github.com/cardwave/giftpay/internal/app/api/server"
	"github.com/cardwave/giftpay/internal/app/service/callbacklog"
	"github.com/cardwave/giftpay/internal/app/service/fulfillment"
	"github.com/cardwave/giftpay/internal/app/service/payment"
	"github.com/cardwave/giftpay/internal/app/service/rates"
	"github.com/cardwave/giftpay/internal/app/service/statistics"
	"github.com/cardwave/giftpay/internal/app/service/token"
	"github.com/cardwave/giftpay/internal/platform/db"
	"github.com/cardwave/giftpay/internal/platform/hubble"
	"github.com/cardwave/giftpay/internal/platform/plisio"
	"github.com/cardwave/giftpay/pkg/config"
	"github.com/cardwave/giftpay/pkg/logger"

	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	server.Module,
	plisio.Module,
	hubble.Module,
	token.Module,
	rates.Module,
	callbacklog.Module,
	payment.Module,
	fulfillment.Module,
	statistics.Module,
)
