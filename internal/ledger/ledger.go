package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidQuantity     = errors.New("invalid sell quantity")
)

// Position is one held symbol. TotalCost is the cost basis of the
// currently-held shares, not historical spend: partial sells reduce it
// proportionally (average-cost accounting).
type Position struct {
	Symbol       string          `json:"symbol" db:"symbol"`
	Quantity     int64           `json:"quantity" db:"quantity"`
	TotalCost    decimal.Decimal `json:"totalCost" db:"total_cost"`
	CurrentPrice decimal.Decimal `json:"currentPrice" db:"current_price"`
}

// AvgCost returns the per-share cost basis. Zero for an empty position.
func (p Position) AvgCost() decimal.Decimal {
	if p.Quantity <= 0 {
		return decimal.Zero
	}
	return p.TotalCost.Div(decimal.NewFromInt(p.Quantity))
}

// Portfolio is one user's cash balance and open positions. Positions
// with quantity 0 are never kept in the slice.
type Portfolio struct {
	CashBalance decimal.Decimal `json:"cashBalance"`
	Positions   []Position      `json:"positions"`
}

// New returns an empty portfolio with the given starting cash.
func New(initialCash decimal.Decimal) Portfolio {
	return Portfolio{CashBalance: initialCash, Positions: []Position{}}
}

// Position returns the position for symbol and whether it exists.
func (p Portfolio) Position(symbol string) (Position, bool) {
	for _, pos := range p.Positions {
		if pos.Symbol == symbol {
			return pos, true
		}
	}
	return Position{}, false
}

func (p Portfolio) clone() Portfolio {
	out := Portfolio{CashBalance: p.CashBalance, Positions: make([]Position, len(p.Positions))}
	copy(out.Positions, p.Positions)
	return out
}

// Buy purchases qty shares of symbol at price. It returns a new
// portfolio and never mutates the input, so a failed precondition
// leaves the caller's portfolio untouched.
func Buy(p Portfolio, symbol string, qty int64, price decimal.Decimal) (Portfolio, error) {
	if symbol == "" {
		return p, fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}
	if qty <= 0 {
		return p, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	if !price.IsPositive() {
		return p, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}

	cost := price.Mul(decimal.NewFromInt(qty))
	if cost.GreaterThan(p.CashBalance) {
		return p, fmt.Errorf("%w: need %s, have %s", ErrInsufficientBalance, cost.StringFixed(2), p.CashBalance.StringFixed(2))
	}

	out := p.clone()
	out.CashBalance = out.CashBalance.Sub(cost)
	for i := range out.Positions {
		if out.Positions[i].Symbol == symbol {
			out.Positions[i].Quantity += qty
			out.Positions[i].TotalCost = out.Positions[i].TotalCost.Add(cost)
			out.Positions[i].CurrentPrice = price
			return out, nil
		}
	}
	out.Positions = append(out.Positions, Position{
		Symbol:       symbol,
		Quantity:     qty,
		TotalCost:    cost,
		CurrentPrice: price,
	})
	return out, nil
}

// Sell disposes of qty shares of symbol at price. The cost basis is
// reduced proportionally to the sold quantity; a position that reaches
// quantity 0 is removed.
func Sell(p Portfolio, symbol string, qty int64, price decimal.Decimal) (Portfolio, error) {
	if symbol == "" {
		return p, fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}
	if qty <= 0 {
		return p, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	if !price.IsPositive() {
		return p, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}

	pos, ok := p.Position(symbol)
	if !ok || pos.Quantity < qty || pos.Quantity <= 0 {
		return p, fmt.Errorf("%w: holding %d of %s, tried to sell %d", ErrInvalidQuantity, pos.Quantity, symbol, qty)
	}

	proceeds := price.Mul(decimal.NewFromInt(qty))
	sold := pos.TotalCost.Div(decimal.NewFromInt(pos.Quantity)).Mul(decimal.NewFromInt(qty))

	out := p.clone()
	out.CashBalance = out.CashBalance.Add(proceeds)
	for i := range out.Positions {
		if out.Positions[i].Symbol != symbol {
			continue
		}
		if out.Positions[i].Quantity == qty {
			out.Positions = append(out.Positions[:i], out.Positions[i+1:]...)
		} else {
			out.Positions[i].Quantity -= qty
			out.Positions[i].TotalCost = out.Positions[i].TotalCost.Sub(sold)
			out.Positions[i].CurrentPrice = price
		}
		break
	}
	return out, nil
}

// Valuation is a point-in-time view of a portfolio with refreshed
// prices and the total value cash + sum(price*qty).
type Valuation struct {
	CashBalance decimal.Decimal `json:"cashBalance"`
	Positions   []Position      `json:"positions"`
	TotalValue  decimal.Decimal `json:"totalValue"`
}

// QuoteFunc resolves a symbol to its current price.
type QuoteFunc func(symbol string) (decimal.Decimal, error)

// Valuate refreshes every position's current price through lookup and
// totals the portfolio. A failed lookup keeps that position's previous
// price so one bad symbol never blocks the rest of the report.
func Valuate(p Portfolio, lookup QuoteFunc) Valuation {
	v := Valuation{
		CashBalance: p.CashBalance,
		Positions:   make([]Position, len(p.Positions)),
		TotalValue:  p.CashBalance,
	}
	copy(v.Positions, p.Positions)
	for i := range v.Positions {
		if price, err := lookup(v.Positions[i].Symbol); err == nil {
			v.Positions[i].CurrentPrice = price
		}
		v.TotalValue = v.TotalValue.Add(v.Positions[i].CurrentPrice.Mul(decimal.NewFromInt(v.Positions[i].Quantity)))
	}
	return v
}
