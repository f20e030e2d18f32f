// Package broker is the outbound order boundary: bracket order validation and
// a paper broker. Live routing lives outside this module.
package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/screener/errs"
	"github.com/rustyeddy/screener/risk"
)

// Broker accepts long bracket orders.
type Broker interface {
	SubmitBracket(ctx context.Context, o BracketOrder) (orderID string, err error)
}

// BracketOrder is a long entry with attached take-profit and stop-loss legs.
type BracketOrder struct {
	Symbol          string
	Qty             int
	EntryPrice      decimal.Decimal
	TakeProfitPrice decimal.Decimal
	StopLossPrice   decimal.Decimal
	ClientOrderID   string
	TimeInForce     string // "gtc" when empty
}

// NewBracket builds an order from float prices, rounded to cents.
func NewBracket(symbol string, qty int, entry, takeProfit, stopLoss float64) BracketOrder {
	return BracketOrder{
		Symbol:          symbol,
		Qty:             qty,
		EntryPrice:      cents(entry),
		TakeProfitPrice: cents(takeProfit),
		StopLossPrice:   cents(stopLoss),
	}
}

func cents(x float64) decimal.Decimal {
	return decimal.NewFromFloat(x).Round(2)
}

// FromPosition turns a sized position into a bracket order. The position
// must carry a take profit.
func FromPosition(p risk.Position) (BracketOrder, error) {
	if p.TakeProfit == 0 {
		return BracketOrder{}, errs.Invalid("broker.from_position", "%s: position has no take profit", p.Ticker)
	}
	o := NewBracket(p.Ticker, p.Shares, p.EntryPrice, p.TakeProfit, p.StopLoss)
	if err := o.Validate(); err != nil {
		return BracketOrder{}, err
	}
	return o, nil
}

// Validate rejects the order before any external call unless qty > 0, every
// price is positive and take profit > entry > stop loss.
func (o BracketOrder) Validate() error {
	const op = "broker.validate"
	switch {
	case o.Symbol == "":
		return errs.Invalid(op, "symbol is required")
	case o.Qty <= 0:
		return errs.Invalid(op, "%s: quantity must be positive, got %d", o.Symbol, o.Qty)
	case !o.EntryPrice.IsPositive() || !o.TakeProfitPrice.IsPositive() || !o.StopLossPrice.IsPositive():
		return errs.Invalid(op, "%s: prices must be positive", o.Symbol)
	case !o.TakeProfitPrice.GreaterThan(o.EntryPrice):
		return errs.Invalid(op, "%s: take profit %s must be above entry %s", o.Symbol, o.TakeProfitPrice, o.EntryPrice)
	case !o.StopLossPrice.LessThan(o.EntryPrice):
		return errs.Invalid(op, "%s: stop loss %s must be below entry %s", o.Symbol, o.StopLossPrice, o.EntryPrice)
	}
	return nil
}

// withDefaults fills the client order id (<SYMBOL>_<unix>) and time in force.
func (o BracketOrder) withDefaults(now time.Time) BracketOrder {
	if o.ClientOrderID == "" {
		o.ClientOrderID = fmt.Sprintf("%s_%d", o.Symbol, now.Unix())
	}
	if o.TimeInForce == "" {
		o.TimeInForce = "gtc"
	}
	return o
}

// Notional is qty times entry.
func (o BracketOrder) Notional() decimal.Decimal {
	return o.EntryPrice.Mul(decimal.NewFromInt(int64(o.Qty)))
}
