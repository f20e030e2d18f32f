package broker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/screener/pkg/id"
)

// Order is a bracket accepted by the paper broker.
type Order struct {
	ID        string
	Submitted time.Time
	Canceled  bool
	BracketOrder
}

// Paper records bracket orders in memory. It is safe for concurrent use.
type Paper struct {
	mu     sync.Mutex
	orders map[string]*Order
	now    func() time.Time
	log    zerolog.Logger
}

// NewPaper returns an empty paper broker.
func NewPaper(log zerolog.Logger) *Paper {
	return &Paper{
		orders: map[string]*Order{},
		now:    time.Now,
		log:    log,
	}
}

// SubmitBracket validates o and records it under a new ULID.
func (p *Paper) SubmitBracket(ctx context.Context, o BracketOrder) (string, error) {
	if err := o.Validate(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	ord := &Order{ID: id.NewAt(now), Submitted: now, BracketOrder: o.withDefaults(now)}
	p.orders[ord.ID] = ord

	p.log.Info().
		Str("order_id", ord.ID).
		Str("symbol", o.Symbol).
		Int("qty", o.Qty).
		Str("entry", o.EntryPrice.StringFixed(2)).
		Str("take_profit", o.TakeProfitPrice.StringFixed(2)).
		Str("stop_loss", o.StopLossPrice.StringFixed(2)).
		Msg("paper bracket submitted")
	return ord.ID, nil
}

// CancelSymbol cancels every open order for symbol and returns how many.
func (p *Paper) CancelSymbol(ctx context.Context, symbol string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, o := range p.orders {
		if o.Symbol == symbol && !o.Canceled {
			o.Canceled = true
			n++
		}
	}
	return n, nil
}

// Orders returns every order in submission order.
func (p *Paper) Orders() []Order {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Order, 0, len(p.orders))
	for _, o := range p.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Open returns the quantity held per symbol across uncanceled orders.
func (p *Paper) Open() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := map[string]int{}
	for _, o := range p.orders {
		if !o.Canceled {
			out[o.Symbol] += o.Qty
		}
	}
	return out
}
