// Package strategy holds the decision heuristics used by autonomous players:
// what to buy, what to trade for, where to build and how to raise cash.
// Everything here is pure; executing a decision is the orchestrator's job.
package strategy

import (
	"sort"

	"github.com/jason-s-yu/tycoon/internal/board"
	"github.com/jason-s-yu/tycoon/internal/models"
)

// Holdings indexes ownership records by board property id.
type Holdings struct {
	byProperty map[int]models.GameProperty
}

// NewHoldings builds an index from the ownership records of one game.
func NewHoldings(records []models.GameProperty) Holdings {
	h := Holdings{byProperty: make(map[int]models.GameProperty, len(records))}
	for _, gp := range records {
		h.byProperty[gp.PropertyID] = gp
	}
	return h
}

// Record returns the ownership record of a property.
func (h Holdings) Record(propertyID int) (models.GameProperty, bool) {
	gp, ok := h.byProperty[propertyID]
	return gp, ok
}

// Owner returns the owning address, or "" when the bank holds it.
func (h Holdings) Owner(propertyID int) string {
	gp, ok := h.byProperty[propertyID]
	if !ok || gp.OwnedByBank() {
		return ""
	}
	return gp.Address
}

// IsUnowned reports whether a property can still be bought from the bank.
func (h Holdings) IsUnowned(propertyID int) bool {
	return h.Owner(propertyID) == ""
}

// OwnedBy returns every record held by addr, ordered by property id.
func (h Holdings) OwnedBy(addr string) []models.GameProperty {
	var out []models.GameProperty
	for _, gp := range h.byProperty {
		if models.SameAddress(gp.Address, addr) {
			out = append(out, gp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PropertyID < out[j].PropertyID })
	return out
}

// CountOwned counts how many members of g are held by addr.
func (h Holdings) CountOwned(g board.Group, addr string) int {
	n := 0
	for _, id := range g.Members() {
		if models.SameAddress(h.Owner(id), addr) {
			n++
		}
	}
	return n
}

// CountOwnedByOthers counts members of g held by anyone other than addr or the bank.
func (h Holdings) CountOwnedByOthers(g board.Group, addr string) int {
	n := 0
	for _, id := range g.Members() {
		owner := h.Owner(id)
		if owner != "" && !models.SameAddress(owner, addr) {
			n++
		}
	}
	return n
}
