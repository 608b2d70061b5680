package actions

import (
	"github.com/nathoo/idlecore/engine/state"
	"github.com/nathoo/idlecore/engine/store"
	"github.com/nathoo/idlecore/types"
)

// AddItem adds qty of an item. Non-positive quantities do nothing. With a
// capacity set, only the remaining room is stored.
func AddItem(itemID string, qty int) store.Action {
	return store.Action{
		Type:  "inventory/addItem",
		Paths: []string{PathInventory},
		Reduce: func(s *types.GameState) error {
			addItem(s, itemID, qty)
			return nil
		},
	}
}

// RemoveItem removes up to qty of an item. The key is deleted once it
// reaches zero.
func RemoveItem(itemID string, qty int) store.Action {
	return store.Action{
		Type:  "inventory/removeItem",
		Paths: []string{PathInventory},
		Reduce: func(s *types.GameState) error {
			removeItem(s, itemID, qty)
			return nil
		},
	}
}

// ConsumeMaterials removes every listed material or, if any is short,
// nothing at all.
func ConsumeMaterials(materials []types.ItemQty) store.Action {
	return store.Action{
		Type:  "inventory/consumeMaterials",
		Paths: []string{PathInventory},
		Reduce: func(s *types.GameState) error {
			return consume(s, materials)
		},
	}
}

// Stored splits the inventory gain between before and after across the
// requested grants in order, the way addItem fills the remaining room.
// Grants that stored nothing are dropped.
func Stored(before, after *types.GameState, grants []types.ItemQty) []types.ItemQty {
	gained := make(map[string]int)
	var out []types.ItemQty
	for _, g := range grants {
		if _, seen := gained[g.ItemID]; !seen {
			gained[g.ItemID] = state.ItemCount(after, g.ItemID) - state.ItemCount(before, g.ItemID)
		}
		n := min(g.Qty, gained[g.ItemID])
		if n <= 0 {
			continue
		}
		gained[g.ItemID] -= n
		out = append(out, types.ItemQty{ItemID: g.ItemID, Qty: n})
	}
	return out
}

// addItem returns the quantity actually stored.
func addItem(s *types.GameState, itemID string, qty int) int {
	if qty <= 0 || itemID == "" {
		return 0
	}
	if limit := s.Inventory.Capacity; limit > 0 {
		qty = min(qty, limit-state.InventoryTotal(s))
		if qty <= 0 {
			return 0
		}
	}
	s.Inventory.Items.Set(itemID, s.Inventory.Items.Value(itemID)+qty)
	return qty
}

func removeItem(s *types.GameState, itemID string, qty int) {
	if qty <= 0 {
		return
	}
	have, ok := s.Inventory.Items.Get(itemID)
	if !ok {
		return
	}
	if left := have - qty; left > 0 {
		s.Inventory.Items.Set(itemID, left)
		return
	}
	s.Inventory.Items.Delete(itemID)
}

func consume(s *types.GameState, materials []types.ItemQty) error {
	if !state.HasMaterials(s, materials) {
		return ErrInsufficientMaterials
	}
	for _, m := range materials {
		removeItem(s, m.ItemID, m.Qty)
	}
	return nil
}
