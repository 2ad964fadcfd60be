package taxcalc

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// ErrPoolNegative is raised when an operation would take a Section 104 pool's
// quantity below zero.
var ErrPoolNegative = fmt.Errorf("section 104 pool quantity cannot go negative")

// Section104Entry is one append-only audit record of a pool mutation.
type Section104Entry struct {
	Date        Date     `json:"date"`
	OldQuantity Quantity `json:"oldQuantity"`
	NewQuantity Quantity `json:"newQuantity"`
	OldCost     Money    `json:"oldCost"`
	NewCost     Money    `json:"newCost"`
	Explanation string   `json:"explanation"`
}

// Section104Pool is the running pooled holding of one asset name: total
// quantity and total allowable acquisition cost, averaged over every
// acquisition that reached the pool. Futures pools additionally carry the
// pooled contract value of the open position.
//
// A pool is only ever mutated from a single goroutine, in chronological
// order; the matching engine guarantees that.
type Section104Pool struct {
	assetName     string
	quantity      Quantity
	cost          Money
	contractValue Money
	history       []Section104Entry
}

// AssetName returns the asset name the pool tracks.
func (p *Section104Pool) AssetName() string { return p.assetName }

// Quantity returns the pooled quantity.
func (p *Section104Pool) Quantity() Quantity { return p.quantity }

// Cost returns the pooled allowable cost.
func (p *Section104Pool) Cost() Money { return p.cost }

// ContractValue returns the pooled contract value (futures only).
func (p *Section104Pool) ContractValue() Money { return p.contractValue }

// History returns the pool's audit trail. The returned slice must not be
// mutated.
func (p *Section104Pool) History() []Section104Entry { return p.history }

// AverageCost returns the pooled cost of one unit, or zero for an empty pool.
func (p *Section104Pool) AverageCost() Money {
	if p.quantity.IsZero() {
		return Money{}
	}
	return p.cost.Div(p.quantity)
}

func (p *Section104Pool) record(day Date, oldQty Quantity, oldCost Money, explanation string) {
	p.history = append(p.history, Section104Entry{
		Date:        day,
		OldQuantity: oldQty,
		NewQuantity: p.quantity,
		OldCost:     oldCost,
		NewCost:     p.cost,
		Explanation: explanation,
	})
}

// Add merges an acquisition into the pool.
func (p *Section104Pool) Add(day Date, quantity Quantity, cost Money, explanation string) {
	oldQty, oldCost := p.quantity, p.cost
	p.quantity = p.quantity.Add(quantity)
	p.cost = p.cost.Add(cost)
	p.record(day, oldQty, oldCost, explanation)
}

// AddWithContractValue merges a future opening into the pool, tracking the
// position's notional alongside quantity and cost.
func (p *Section104Pool) AddWithContractValue(day Date, quantity Quantity, cost, contractValue Money, explanation string) {
	p.contractValue = p.contractValue.Add(contractValue)
	p.Add(day, quantity, cost, explanation)
}

// Remove takes quantity out of the pool at the pooled average cost and
// returns the cost removed. Removing more than the pool holds (beyond the
// rounding epsilon) is an invariant violation.
func (p *Section104Pool) Remove(day Date, quantity Quantity, explanation string) (Money, error) {
	if quantity.GreaterThan(p.quantity) {
		if !quantity.Sub(p.quantity).IsExhausted() {
			return Money{}, fmt.Errorf("%w: removing %s from pool %q holding %s", ErrPoolNegative, quantity, p.assetName, p.quantity)
		}
		quantity = p.quantity
	}
	if quantity.IsExhausted() {
		// nothing to take; the pro-rata share below would divide by an
		// empty pool's quantity
		return M(0, p.cost.Currency()), nil
	}
	oldQty, oldCost := p.quantity, p.cost
	removed := p.cost.Mul(quantity).Div(p.quantity)
	p.quantity = p.quantity.Sub(quantity)
	p.cost = p.cost.Sub(removed)
	if p.quantity.IsExhausted() {
		// absorb division residue so an emptied pool really is empty
		p.quantity = Quantity{}
		p.cost = M(0, p.cost.Currency())
	}
	p.record(day, oldQty, oldCost, explanation)
	return removed, nil
}

// RemoveContractValue takes the pro-rata share of the pooled contract value
// for a closed quantity and returns it. Call before Remove, which shrinks the
// pool quantity.
func (p *Section104Pool) RemoveContractValue(quantity Quantity) Money {
	if p.quantity.IsZero() {
		return Money{}
	}
	share := p.contractValue.Mul(quantity).Div(p.quantity)
	p.contractValue = p.contractValue.Sub(share)
	return share
}

// ScaleQuantity multiplies the pooled quantity by ratio, leaving cost
// untouched. Used by stock splits.
func (p *Section104Pool) ScaleQuantity(day Date, ratio decimal.Decimal, explanation string) {
	oldQty, oldCost := p.quantity, p.cost
	p.quantity = Q(p.quantity.Decimal().Mul(ratio))
	p.record(day, oldQty, oldCost, explanation)
}

// AdjustCost adds delta (possibly negative) to the pooled cost, leaving
// quantity untouched. Used by returns of capital, equalisation and excess
// reportable income.
func (p *Section104Pool) AdjustCost(day Date, delta Money, explanation string) error {
	newCost := p.cost.Add(delta)
	if newCost.IsNegative() {
		return fmt.Errorf("cost adjustment of %s takes pool %q cost below zero (holding cost %s)", delta, p.assetName, p.cost)
	}
	oldQty, oldCost := p.quantity, p.cost
	p.cost = newCost
	p.record(day, oldQty, oldCost, explanation)
	return nil
}

// Snapshot returns a short description of the pool state for match audit
// records.
func (p *Section104Pool) Snapshot() string {
	return fmt.Sprintf("pool %q: %s units, cost %s", p.assetName, p.quantity, p.cost)
}

// Clear resets the pool to an empty state with an empty history.
func (p *Section104Pool) Clear() {
	p.quantity = Quantity{}
	p.cost = Money{}
	p.contractValue = Money{}
	p.history = nil
}

// PoolRegistry owns every Section 104 pool of one calculation run. Pools are
// created on first reference and live until the registry is cleared. The
// registry is the unit of ownership: a run builds its own registry and
// discards it at the end.
type PoolRegistry struct {
	pools map[string]*Section104Pool
}

// NewPoolRegistry creates an empty registry.
func NewPoolRegistry() *PoolRegistry {
	return &PoolRegistry{pools: make(map[string]*Section104Pool)}
}

// Pool returns the pool for the asset name, creating it on first reference.
func (r *PoolRegistry) Pool(assetName string) *Section104Pool {
	p, ok := r.pools[assetName]
	if !ok {
		p = &Section104Pool{assetName: assetName}
		r.pools[assetName] = p
	}
	return p
}

// Has reports whether a pool exists for the asset name.
func (r *PoolRegistry) Has(assetName string) bool {
	_, ok := r.pools[assetName]
	return ok
}

// Names returns the registered asset names in lexical order.
func (r *PoolRegistry) Names() []string {
	names := make([]string, 0, len(r.pools))
	for name := range r.pools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Clear resets every pool, ready for a fresh run.
func (r *PoolRegistry) Clear() {
	for _, p := range r.pools {
		p.Clear()
	}
}
