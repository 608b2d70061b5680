// Package httpapi exposes the game commands as a JSON API on hertz.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/nathoo/idlecore/engine"
	"github.com/nathoo/idlecore/engine/actions"
	"github.com/nathoo/idlecore/engine/combat"
	"github.com/nathoo/idlecore/engine/profession"
	"github.com/nathoo/idlecore/engine/quest"
	"github.com/nathoo/idlecore/engine/save"
	"github.com/nathoo/idlecore/engine/sched"
	"github.com/nathoo/idlecore/types"
)

// Game is the command surface the handler drives.
type Game interface {
	State() *types.GameState
	StartCombat() (types.Monster, error)
	Attack() (combat.Outcome, error)
	ToggleAutoCombat() (bool, error)
	ChangeZone(worldID, zoneID string) error
	UnlockZone(zoneID string) error
	Collect(profID string) (profession.Result, error)
	Craft(recipeID string) (profession.Result, error)
	BuyUpgrade(profID, upgradeID string) error
	UnlockProfession(profID string) error
	AssignProfession(profID string) error
	Equip(itemID string) error
	Unequip(slot string) error
	StartQuest(questID string) error
	AbandonQuest(questID string) error
	QuestStatus(questID string) quest.Status
	AvailableQuests() []string
	Save(ctx context.Context, slot string) error
	Load(ctx context.Context, slot string) error
	Slots(ctx context.Context) ([]save.Slot, error)
	DeleteSlot(ctx context.Context, slot string) error
}

var _ Game = (*engine.Game)(nil)

type Handler struct {
	Game   Game
	Logger *slog.Logger
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware())
	s.GET("/healthz", h.health)

	api := s.Group("/api")
	api.GET("/state", h.state)

	api.POST("/combat/start", h.startCombat)
	api.POST("/combat/attack", h.attack)
	api.POST("/combat/auto", h.toggleAuto)
	api.POST("/zones/move", h.changeZone)
	api.POST("/zones/:zone/unlock", h.unlockZone)

	api.POST("/professions/:prof/collect", h.collect)
	api.POST("/professions/:prof/unlock", h.unlockProfession)
	api.POST("/professions/:prof/assign", h.assignProfession)
	api.POST("/professions/:prof/upgrades/:upgrade", h.buyUpgrade)
	api.POST("/recipes/:recipe/craft", h.craft)

	api.POST("/equipment/:item", h.equip)
	api.DELETE("/equipment/:slot", h.unequip)

	api.GET("/quests", h.quests)
	api.POST("/quests/:quest/start", h.startQuest)
	api.POST("/quests/:quest/abandon", h.abandonQuest)

	api.GET("/saves", h.listSaves)
	api.POST("/saves/:slot", h.save)
	api.POST("/saves/:slot/load", h.load)
	api.DELETE("/saves/:slot", h.deleteSave)
}

type zoneRequest struct {
	World string `json:"world"`
	Zone  string `json:"zone"`
}

type outcomeResponse struct {
	Result        string          `json:"result"`
	Monster       types.Monster   `json:"monster"`
	DamageDealt   int             `json:"damageDealt"`
	DamageTaken   int             `json:"damageTaken"`
	Experience    int             `json:"experience"`
	Loot          []types.ItemQty `json:"loot,omitempty"`
	LeveledUp     bool            `json:"leveledUp"`
	ZoneCompleted bool            `json:"zoneCompleted"`
}

type professionResponse struct {
	Profession string          `json:"profession"`
	Items      []types.ItemQty `json:"items"`
	Experience int             `json:"experience"`
	Level      int             `json:"level"`
	LeveledUp  bool            `json:"leveledUp"`
}

type questEntry struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (h Handler) health(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]string{"status": "ok"})
}

func (h Handler) state(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, h.Game.State())
}

func (h Handler) startCombat(_ context.Context, ctx *app.RequestContext) {
	m, err := h.Game.StartCombat()
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"monster": m})
}

func (h Handler) attack(_ context.Context, ctx *app.RequestContext) {
	out, err := h.Game.Attack()
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, outcomeResponse{
		Result:        out.Result.String(),
		Monster:       out.Monster,
		DamageDealt:   out.DamageDealt,
		DamageTaken:   out.DamageTaken,
		Experience:    out.Experience,
		Loot:          out.Loot,
		LeveledUp:     out.LeveledUp,
		ZoneCompleted: out.ZoneCompleted,
	})
}

func (h Handler) toggleAuto(_ context.Context, ctx *app.RequestContext) {
	on, err := h.Game.ToggleAutoCombat()
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]bool{"autoCombat": on})
}

func (h Handler) changeZone(_ context.Context, ctx *app.RequestContext) {
	var body zoneRequest
	if err := decodeJSON(ctx, &body); err != nil || body.Zone == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "body needs world and zone")
		return
	}
	if body.World == "" {
		body.World = h.Game.State().Combat.Zones.CurrentWorldID
	}
	h.reply(ctx, h.Game.ChangeZone(body.World, body.Zone))
}

func (h Handler) unlockZone(_ context.Context, ctx *app.RequestContext) {
	h.reply(ctx, h.Game.UnlockZone(ctx.Param("zone")))
}

func (h Handler) collect(_ context.Context, ctx *app.RequestContext) {
	res, err := h.Game.Collect(ctx.Param("prof"))
	h.professionResult(ctx, res, err)
}

func (h Handler) craft(_ context.Context, ctx *app.RequestContext) {
	res, err := h.Game.Craft(ctx.Param("recipe"))
	h.professionResult(ctx, res, err)
}

func (h Handler) professionResult(ctx *app.RequestContext, res profession.Result, err error) {
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, professionResponse(res))
}

func (h Handler) unlockProfession(_ context.Context, ctx *app.RequestContext) {
	h.reply(ctx, h.Game.UnlockProfession(ctx.Param("prof")))
}

func (h Handler) assignProfession(_ context.Context, ctx *app.RequestContext) {
	h.reply(ctx, h.Game.AssignProfession(ctx.Param("prof")))
}

func (h Handler) buyUpgrade(_ context.Context, ctx *app.RequestContext) {
	h.reply(ctx, h.Game.BuyUpgrade(ctx.Param("prof"), ctx.Param("upgrade")))
}

func (h Handler) equip(_ context.Context, ctx *app.RequestContext) {
	h.reply(ctx, h.Game.Equip(ctx.Param("item")))
}

func (h Handler) unequip(_ context.Context, ctx *app.RequestContext) {
	h.reply(ctx, h.Game.Unequip(ctx.Param("slot")))
}

func (h Handler) quests(_ context.Context, ctx *app.RequestContext) {
	s := h.Game.State()
	var entries []questEntry
	for id := range s.Quests.Active.All() {
		entries = append(entries, questEntry{ID: id, Status: quest.Active.String()})
	}
	for _, id := range h.Game.AvailableQuests() {
		entries = append(entries, questEntry{ID: id, Status: "available"})
	}
	for id := range s.Quests.Completed.All() {
		entries = append(entries, questEntry{ID: id, Status: quest.Completed.String()})
	}
	ctx.JSON(consts.StatusOK, map[string]any{"quests": entries})
}

func (h Handler) startQuest(_ context.Context, ctx *app.RequestContext) {
	h.reply(ctx, h.Game.StartQuest(ctx.Param("quest")))
}

func (h Handler) abandonQuest(_ context.Context, ctx *app.RequestContext) {
	h.reply(ctx, h.Game.AbandonQuest(ctx.Param("quest")))
}

func (h Handler) listSaves(c context.Context, ctx *app.RequestContext) {
	slots, err := h.Game.Slots(c)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"saves": slots})
}

func (h Handler) save(c context.Context, ctx *app.RequestContext) {
	h.reply(ctx, h.Game.Save(c, ctx.Param("slot")))
}

func (h Handler) load(c context.Context, ctx *app.RequestContext) {
	h.reply(ctx, h.Game.Load(c, ctx.Param("slot")))
}

func (h Handler) deleteSave(c context.Context, ctx *app.RequestContext) {
	h.reply(ctx, h.Game.DeleteSlot(c, ctx.Param("slot")))
}

// reply answers a command that only succeeds or fails.
func (h Handler) reply(ctx *app.RequestContext, err error) {
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]bool{"ok": true})
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (h Handler) writeError(ctx *app.RequestContext, err error) {
	status, code := classify(err)
	if status >= consts.StatusInternalServerError {
		h.logger().Error("command failed", "path", string(ctx.Path()), "err", err)
	}
	writeErrorBody(ctx, status, code, err.Error())
}

func (h Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, quest.ErrUnknownQuest),
		errors.Is(err, profession.ErrUnknownProfession),
		errors.Is(err, profession.ErrUnknownRecipe),
		errors.Is(err, profession.ErrUnknownUpgrade),
		errors.Is(err, combat.ErrUnknownZone),
		errors.Is(err, combat.ErrUnknownWorld),
		errors.Is(err, engine.ErrUnknownItem),
		errors.Is(err, save.ErrNotFound):
		return consts.StatusNotFound, "not_found"
	case errors.Is(err, profession.ErrUnsupportedOperation),
		errors.Is(err, actions.ErrUnknownSlot),
		errors.Is(err, engine.ErrNotEquipable):
		return consts.StatusBadRequest, "bad_request"
	case errors.Is(err, combat.ErrNotInCombat),
		errors.Is(err, combat.ErrAlreadyInCombat):
		return consts.StatusConflict, "combat_state"
	case errors.Is(err, combat.ErrZoneLocked),
		errors.Is(err, combat.ErrAutoCombatLocked),
		errors.Is(err, actions.ErrNotUnlocked),
		errors.Is(err, quest.ErrPrerequisites),
		errors.Is(err, profession.ErrRequirementsNotMet),
		errors.Is(err, profession.ErrLevelTooLow):
		return consts.StatusConflict, "locked"
	case errors.Is(err, profession.ErrInsufficientMaterials),
		errors.Is(err, profession.ErrNotAssigned),
		errors.Is(err, profession.ErrUpgradeOwned),
		errors.Is(err, profession.ErrNoSlot),
		errors.Is(err, profession.ErrNoResources),
		errors.Is(err, engine.ErrNotOwned),
		errors.Is(err, quest.ErrAlreadyActive),
		errors.Is(err, quest.ErrAlreadyCompleted),
		errors.Is(err, quest.ErrNotActive):
		return consts.StatusConflict, "precondition_failed"
	case errors.Is(err, save.ErrCorrupt),
		errors.Is(err, save.ErrUnsupportedVersion):
		return consts.StatusUnprocessableEntity, "bad_save"
	case errors.Is(err, engine.ErrNoRepository),
		errors.Is(err, sched.ErrStopped):
		return consts.StatusServiceUnavailable, "unavailable"
	}
	return consts.StatusInternalServerError, "internal"
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

const corsAllowMethods = "GET,POST,DELETE,OPTIONS"
const corsAllowHeaders = "Content-Type"

func applyCORSHeaders(ctx *app.RequestContext) {
	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.Response.Header.Set("Access-Control-Allow-Methods", corsAllowMethods)
	ctx.Response.Header.Set("Access-Control-Allow-Headers", corsAllowHeaders)
}

func corsMiddleware() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		applyCORSHeaders(ctx)
		if strings.EqualFold(string(ctx.Method()), consts.MethodOptions) {
			ctx.AbortWithStatus(consts.StatusNoContent)
			return
		}
		ctx.Next(c)
	}
}
