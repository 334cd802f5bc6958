package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/NilaySharma23/finplay/internal/quotes"
)

// PriceProvider resolves a symbol to its current price for ledger
// operations.
type PriceProvider interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// QuotePriceService backs PriceProvider with live quotes. Every call
// is a fresh upstream lookup; trades always execute at the price the
// provider reports right now.
type QuotePriceService struct {
	client *quotes.Client
	log    *logrus.Logger
}

func NewQuotePriceService(c *quotes.Client, log *logrus.Logger) *QuotePriceService {
	return &QuotePriceService{client: c, log: log}
}

func (s *QuotePriceService) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q, err := s.client.GetQuote(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(q.Price), nil
}
