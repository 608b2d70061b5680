package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/idlecore/cli/command"
	"github.com/nathoo/idlecore/engine/state"
)

// statusParts builds the left and right halves of the status bar and
// reports whether the player is low on health.
func (m Model) statusParts() (left, right string, alert bool) {
	s := m.game.State()
	defs := m.session.Defs()

	var parts []string
	if c, ok := state.ActiveCharacter(s); ok {
		parts = append(parts, fmt.Sprintf("%s Lv%d HP %d/%d", c.Name, c.Level, c.Stats.CurrentHP, c.Stats.MaxHP))
		alert = c.Stats.CurrentHP*4 <= c.Stats.MaxHP
	}
	if z, ok := state.CurrentZone(s, defs); ok {
		parts = append(parts, fmt.Sprintf("%s %d/%d", command.DisplayName(defs, "zone", z.ID),
			s.Combat.Zones.MonstersDefeated, state.CompletionThreshold(z)))
	}
	if cs := s.Combat.State; cs.InCombat && cs.CurrentMonster != nil {
		parts = append(parts, fmt.Sprintf("vs %s %d/%d", cs.CurrentMonster.Name, cs.CurrentMonster.CurrentHP, cs.CurrentMonster.MaxHP))
	}
	left = " " + strings.Join(parts, " | ")

	right = fmt.Sprintf("Bag %d ", state.InventoryTotal(s))
	if s.Inventory.Capacity > 0 {
		right = fmt.Sprintf("Bag %d/%d ", state.InventoryTotal(s), s.Inventory.Capacity)
	}
	if s.Combat.State.AutoCombatEnabled {
		right = "AUTO | " + right
	}
	return left, right, alert
}

// renderStatusBar produces a full-width inverted status line showing the
// character, zone progress, the current fight and the bag.
func (m Model) renderStatusBar() string {
	left, right, alert := m.statusParts()

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	style := styleStatusBar
	if alert {
		style = styleStatusAlert
	}
	return style.Width(m.width).Render(bar)
}
