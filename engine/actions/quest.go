package actions

import (
	"github.com/nathoo/idlecore/engine/store"
	"github.com/nathoo/idlecore/types"
)

// Progress kinds.
const (
	ProgressMonster = "monster"
	ProgressItem    = "item"
)

// StartQuest activates a quest with zeroed progress.
func StartQuest(def types.QuestDefinition) store.Action {
	return store.Action{
		Type:  "quest/start",
		Paths: []string{PathQuests},
		Reduce: func(s *types.GameState) error {
			q := &s.Quests
			if q.Completed.Has(def.ID) {
				return ErrQuestCompleted
			}
			if q.Active.Has(def.ID) {
				return ErrQuestActive
			}
			q.Active.Set(def.ID, def)
			q.Progress.Set(def.ID, types.QuestProgress{})
			return nil
		},
	}
}

// RecordQuestProgress adds n to one counter of an active quest, stopping at
// limit.
func RecordQuestProgress(questID, kind, key string, n, limit int) store.Action {
	return store.Action{
		Type:  "quest/progress",
		Paths: []string{PathQuests},
		Reduce: func(s *types.GameState) error {
			q := &s.Quests
			if !q.Active.Has(questID) {
				return ErrQuestNotActive
			}
			p := q.Progress.Value(questID)
			counters := &p.MonstersKilled
			if kind == ProgressItem {
				counters = &p.Items
			}
			counters.Set(key, min(limit, counters.Value(key)+max(0, n)))
			q.Progress.Set(questID, p)
			return nil
		},
	}
}

// CompleteQuest moves an active quest to completed. It fails for any other
// quest, which makes completion happen at most once.
func CompleteQuest(questID string) store.Action {
	return store.Action{
		Type:  "quest/complete",
		Paths: []string{PathQuests},
		Reduce: func(s *types.GameState) error {
			q := &s.Quests
			if q.Completed.Has(questID) {
				return ErrQuestCompleted
			}
			if !q.Active.Delete(questID) {
				return ErrQuestNotActive
			}
			q.Progress.Delete(questID)
			q.Completed.Add(questID)
			return nil
		},
	}
}

// AbandonQuest drops an active quest and its progress.
func AbandonQuest(questID string) store.Action {
	return store.Action{
		Type:  "quest/abandon",
		Paths: []string{PathQuests},
		Reduce: func(s *types.GameState) error {
			q := &s.Quests
			if !q.Active.Delete(questID) {
				return ErrQuestNotActive
			}
			q.Progress.Delete(questID)
			return nil
		},
	}
}
