package aggregate

import (
	"sync"

	"github.com/hoangtv/storefront/cart/pkg/response"
)

// CartAggregate is a pure cache of server truth. Replace is the only mutator;
// every other "mutation" is a remote call whose successful response is fed
// back into Replace.
type CartAggregate struct {
	mu    sync.RWMutex
	lines []response.CartLine
}

func New(lines []response.CartLine) *CartAggregate {
	agg := &CartAggregate{}
	agg.Replace(lines)
	return agg
}

// Replace swaps the whole line set for the authoritative server cart.
func (a *CartAggregate) Replace(lines []response.CartLine) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lines = make([]response.CartLine, len(lines))
	copy(a.lines, lines)
}

func (a *CartAggregate) Lines() []response.CartLine {
	a.mu.RLock()
	defer a.mu.RUnlock()
	lines := make([]response.CartLine, len(a.lines))
	copy(lines, a.lines)
	return lines
}

// SelectedLines filters the aggregate by id, preserving aggregate order and
// dropping duplicate and foreign ids. A selected id whose line no longer
// exists is silently ignored.
func (a *CartAggregate) SelectedLines(ids []string) []response.CartLine {
	a.mu.RLock()
	defer a.mu.RUnlock()

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	selected := []response.CartLine{}
	for _, line := range a.lines {
		if _, ok := wanted[line.ID]; ok {
			selected = append(selected, line)
		}
	}
	return selected
}

func (a *CartAggregate) Line(id string) (response.CartLine, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, line := range a.lines {
		if line.ID == id {
			return line, true
		}
	}
	return response.CartLine{}, false
}

func (a *CartAggregate) LineCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.lines)
}

func (a *CartAggregate) TotalQuantity() int32 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var total int32
	for _, line := range a.lines {
		total += line.Quantity
	}
	return total
}
