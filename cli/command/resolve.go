package command

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nathoo/idlecore/engine/state"
	"github.com/nathoo/idlecore/types"
)

// AmbiguityError indicates multiple definitions matched a name.
type AmbiguityError struct {
	Kind       string
	Name       string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("which %s? (%s)", e.Name, strings.Join(e.Candidates, ", "))
}

// NotFoundError indicates no definition matched a name.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("there is no %s called %q", e.Kind, e.Name)
}

type candidate struct {
	id   string
	name string
}

// Resolver maps player-typed names to definition ids.
type Resolver struct {
	defs *state.Defs
}

// NewResolver builds a resolver over defs.
func NewResolver(defs *state.Defs) Resolver { return Resolver{defs: defs} }

func (r Resolver) Zone(name string) (string, error) {
	var cands []candidate
	for id, z := range r.defs.Zones {
		cands = append(cands, candidate{id, z.Name})
	}
	return resolveName("zone", name, cands)
}

func (r Resolver) Item(name string) (string, error) {
	var cands []candidate
	for id, it := range r.defs.Items {
		cands = append(cands, candidate{id, it.Name})
	}
	return resolveName("item", name, cands)
}

func (r Resolver) Profession(name string) (string, error) {
	var cands []candidate
	for id, p := range r.defs.Professions {
		cands = append(cands, candidate{id, p.Name})
	}
	return resolveName("profession", name, cands)
}

func (r Resolver) Recipe(name string) (string, error) {
	var cands []candidate
	for id, rec := range r.defs.Recipes {
		n := rec.Name
		if n == "" {
			if it, ok := r.defs.Items[rec.Output]; ok {
				n = it.Name
			}
		}
		cands = append(cands, candidate{id, n})
	}
	return resolveName("recipe", name, cands)
}

func (r Resolver) Quest(name string) (string, error) {
	var cands []candidate
	for id, q := range r.defs.Quests {
		cands = append(cands, candidate{id, q.Title})
	}
	return resolveName("quest", name, cands)
}

// Upgrade resolves an upgrade name. An empty profID searches every
// profession; upgrade ids are returned as "prof/upgrade" candidates when
// they collide across professions.
func (r Resolver) Upgrade(name, profID string) (prof, upgrade string, err error) {
	var cands []candidate
	owner := make(map[string]string)
	for pid, p := range r.defs.Professions {
		if profID != "" && pid != profID {
			continue
		}
		for _, u := range p.Upgrades {
			key := pid + "/" + u.ID
			cands = append(cands, candidate{key, u.Name})
			owner[key] = pid
		}
	}
	// bare upgrade ids match too
	for key := range owner {
		if _, id, _ := strings.Cut(key, "/"); strings.EqualFold(id, name) || strings.EqualFold(id, strings.ReplaceAll(name, " ", "_")) {
			if profID != "" || countSuffix(owner, id) == 1 {
				return owner[key], id, nil
			}
		}
	}
	key, err := resolveName("upgrade", name, cands)
	if err != nil {
		return "", "", err
	}
	_, id, _ := strings.Cut(key, "/")
	return owner[key], id, nil
}

func countSuffix(owner map[string]string, id string) int {
	n := 0
	for key := range owner {
		if strings.HasSuffix(key, "/"+id) {
			n++
		}
	}
	return n
}

// Slot resolves an equipment slot, either by slot name or by the name of
// an item that fits it.
func (r Resolver) Slot(name string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	switch lower {
	case "weapon", "armor", "armour", "accessory":
		if lower == "armour" {
			lower = "armor"
		}
		return lower, nil
	}
	id, err := r.Item(name)
	if err != nil {
		return "", &NotFoundError{Kind: "slot", Name: name}
	}
	slot := r.defs.Items[id].Slot
	if slot == "" {
		return "", &NotFoundError{Kind: "slot", Name: name}
	}
	return slot, nil
}

// resolveName picks the single candidate matching name. An exact id or name
// match wins over partial word matches.
func resolveName(kind, name string, cands []candidate) (string, error) {
	slices.SortFunc(cands, func(a, b candidate) int { return strings.Compare(a.id, b.id) })
	nameLower := strings.ToLower(strings.TrimSpace(name))
	if nameLower == "" {
		return "", &NotFoundError{Kind: kind, Name: name}
	}

	for _, c := range cands {
		if strings.ToLower(c.id) == nameLower {
			return c.id, nil
		}
	}

	var exact, partial []string
	for _, c := range cands {
		switch {
		case exactMatch(c, nameLower):
			exact = append(exact, c.id)
		case wordMatch(c, nameLower):
			partial = append(partial, c.id)
		}
	}
	matches := exact
	if len(matches) == 0 {
		matches = partial
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{Kind: kind, Name: name}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguityError{Kind: kind, Name: name, Candidates: matches}
	}
}

func exactMatch(c candidate, nameLower string) bool {
	if strings.ToLower(c.name) == nameLower {
		return true
	}
	// "copper ore" matches id "copper_ore"
	return strings.ReplaceAll(nameLower, " ", "_") == strings.ToLower(c.id)
}

// wordMatch reports whether the query equals one word of the name, so
// "sword" matches "Iron Sword".
func wordMatch(c candidate, nameLower string) bool {
	for _, word := range strings.Fields(strings.ToLower(c.name)) {
		if word == nameLower {
			return true
		}
	}
	return false
}

// DisplayName is the player-facing name of a definition, falling back to
// the title-cased id.
func DisplayName(defs *state.Defs, kind, id string) string {
	switch kind {
	case "zone":
		if z, ok := defs.Zones[id]; ok && z.Name != "" {
			return z.Name
		}
	case "world":
		if w, ok := defs.Worlds[id]; ok && w.Name != "" {
			return w.Name
		}
	case "item":
		if it, ok := defs.Items[id]; ok && it.Name != "" {
			return it.Name
		}
	case "monster":
		if m, ok := defs.Monsters[id]; ok && m.Name != "" {
			return m.Name
		}
	case "profession":
		if p, ok := defs.Professions[id]; ok && p.Name != "" {
			return p.Name
		}
	case "quest":
		if q, ok := defs.Quests[id]; ok && q.Title != "" {
			return q.Title
		}
	case "recipe":
		if r, ok := defs.Recipes[id]; ok {
			if r.Name != "" {
				return r.Name
			}
			return DisplayName(defs, "item", r.Output)
		}
	}
	return titleCase(id)
}

func upgradeName(defs *state.Defs, profID, upgradeID string) string {
	for _, u := range defs.Professions[profID].Upgrades {
		if u.ID == upgradeID && u.Name != "" {
			return u.Name
		}
	}
	return titleCase(upgradeID)
}

func itemList(defs *state.Defs, items []types.ItemQty) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", DisplayName(defs, "item", it.ItemID), it.Qty))
	}
	return strings.Join(parts, ", ")
}
