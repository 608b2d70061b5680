package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/route/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/idlecore/engine"
	"github.com/nathoo/idlecore/engine/combat"
	"github.com/nathoo/idlecore/engine/profession"
	"github.com/nathoo/idlecore/engine/quest"
	"github.com/nathoo/idlecore/engine/save"
	"github.com/nathoo/idlecore/loader"
	"github.com/nathoo/idlecore/storage/memory"
)

func newHandler(t *testing.T) (Handler, *engine.Game) {
	t.Helper()
	defs, err := loader.Default()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g, err := engine.New(defs, engine.Options{Seed: 1, Saves: memory.NewRepo(), Logger: logger})
	require.NoError(t, err)
	require.NoError(t, g.Start())
	t.Cleanup(func() { _ = g.Stop(context.Background()) })
	return Handler{Game: g, Logger: logger}, g
}

func withParams(kv ...string) *app.RequestContext {
	ctx := &app.RequestContext{}
	for i := 0; i+1 < len(kv); i += 2 {
		ctx.Params = append(ctx.Params, param.Param{Key: kv[i], Value: kv[i+1]})
	}
	return ctx
}

func decodeBody(t *testing.T, ctx *app.RequestContext) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	return body
}

func errorCode(t *testing.T, ctx *app.RequestContext) string {
	t.Helper()
	body := decodeBody(t, ctx)
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, "no error object in %v", body)
	return e["code"].(string)
}

func TestHealth(t *testing.T) {
	h, _ := newHandler(t)
	ctx := &app.RequestContext{}
	h.health(context.Background(), ctx)
	assert.Equal(t, consts.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "ok", decodeBody(t, ctx)["status"])
}

func TestState(t *testing.T) {
	h, _ := newHandler(t)
	ctx := &app.RequestContext{}
	h.state(context.Background(), ctx)
	require.Equal(t, consts.StatusOK, ctx.Response.StatusCode())

	body := decodeBody(t, ctx)
	assert.Equal(t, "hero", body["activeCharacterId"])
	party := body["party"].(map[string]any)
	assert.Equal(t, "Map", party["__type"])
}

func TestCombatFlow(t *testing.T) {
	h, _ := newHandler(t)
	c := context.Background()

	ctx := &app.RequestContext{}
	h.attack(c, ctx)
	assert.Equal(t, consts.StatusConflict, ctx.Response.StatusCode())
	assert.Equal(t, "combat_state", errorCode(t, ctx))

	ctx = &app.RequestContext{}
	h.startCombat(c, ctx)
	require.Equal(t, consts.StatusOK, ctx.Response.StatusCode())
	monster := decodeBody(t, ctx)["monster"].(map[string]any)
	assert.NotEmpty(t, monster["id"])

	ctx = &app.RequestContext{}
	h.attack(c, ctx)
	require.Equal(t, consts.StatusOK, ctx.Response.StatusCode())
	result := decodeBody(t, ctx)["result"]
	assert.Contains(t, []any{"ongoing", "victory", "defeat"}, result)
}

func TestToggleAutoLocked(t *testing.T) {
	h, _ := newHandler(t)
	ctx := &app.RequestContext{}
	h.toggleAuto(context.Background(), ctx)
	assert.Equal(t, consts.StatusConflict, ctx.Response.StatusCode())
	assert.Equal(t, "locked", errorCode(t, ctx))
}

func TestChangeZone(t *testing.T) {
	h, g := newHandler(t)
	c := context.Background()

	ctx := &app.RequestContext{}
	h.changeZone(c, ctx)
	assert.Equal(t, consts.StatusBadRequest, ctx.Response.StatusCode())

	ctx = &app.RequestContext{}
	ctx.Request.SetBody([]byte(`{"zone":"goblin_caves"}`))
	h.changeZone(c, ctx)
	assert.Equal(t, consts.StatusConflict, ctx.Response.StatusCode())

	ctx = &app.RequestContext{}
	ctx.Request.SetBody([]byte(`{"world":"verdant","zone":"peaceful_meadow"}`))
	h.changeZone(c, ctx)
	assert.Equal(t, consts.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "peaceful_meadow", g.State().Combat.Zones.CurrentZoneID)
}

func TestProfessionRoutes(t *testing.T) {
	h, _ := newHandler(t)
	c := context.Background()

	ctx := withParams("prof", "mining")
	h.collect(c, ctx)
	assert.Equal(t, consts.StatusConflict, ctx.Response.StatusCode(), "not assigned yet")

	ctx = withParams("prof", "mining")
	h.assignProfession(c, ctx)
	assert.Equal(t, consts.StatusConflict, ctx.Response.StatusCode(), "not unlocked yet")

	ctx = withParams("prof", "mining")
	h.unlockProfession(c, ctx)
	require.Equal(t, consts.StatusOK, ctx.Response.StatusCode())

	ctx = withParams("prof", "mining")
	h.assignProfession(c, ctx)
	require.Equal(t, consts.StatusOK, ctx.Response.StatusCode())

	ctx = withParams("prof", "mining")
	h.collect(c, ctx)
	require.Equal(t, consts.StatusOK, ctx.Response.StatusCode())
	body := decodeBody(t, ctx)
	assert.Equal(t, "mining", body["profession"])
	assert.NotEmpty(t, body["items"])

	ctx = withParams("prof", "alchemy_fishing")
	h.unlockProfession(c, ctx)
	assert.Equal(t, consts.StatusNotFound, ctx.Response.StatusCode())

	ctx = withParams("recipe", "bronze_bar")
	h.craft(c, ctx)
	assert.Equal(t, consts.StatusConflict, ctx.Response.StatusCode())
}

func TestQuestRoutes(t *testing.T) {
	h, _ := newHandler(t)
	c := context.Background()

	ctx := &app.RequestContext{}
	h.quests(c, ctx)
	require.Equal(t, consts.StatusOK, ctx.Response.StatusCode())
	quests := decodeBody(t, ctx)["quests"].([]any)
	require.NotEmpty(t, quests)
	first := quests[0].(map[string]any)
	assert.Equal(t, "slime_slayer", first["id"])
	assert.Equal(t, "active", first["status"])

	ctx = withParams("quest", "wolf_hunt")
	h.startQuest(c, ctx)
	assert.Equal(t, consts.StatusConflict, ctx.Response.StatusCode())
	assert.Equal(t, "locked", errorCode(t, ctx))

	ctx = withParams("quest", "slime_slayer")
	h.abandonQuest(c, ctx)
	assert.Equal(t, consts.StatusOK, ctx.Response.StatusCode())

	ctx = withParams("quest", "dragon")
	h.startQuest(c, ctx)
	assert.Equal(t, consts.StatusNotFound, ctx.Response.StatusCode())
}

func TestSaveRoutes(t *testing.T) {
	h, _ := newHandler(t)
	c := context.Background()

	ctx := withParams("slot", "one")
	h.save(c, ctx)
	require.Equal(t, consts.StatusOK, ctx.Response.StatusCode())

	ctx = &app.RequestContext{}
	h.listSaves(c, ctx)
	require.Equal(t, consts.StatusOK, ctx.Response.StatusCode())
	saves := decodeBody(t, ctx)["saves"].([]any)
	require.Len(t, saves, 1)
	assert.Equal(t, "one", saves[0].(map[string]any)["name"])

	ctx = withParams("slot", "one")
	h.load(c, ctx)
	assert.Equal(t, consts.StatusOK, ctx.Response.StatusCode())

	ctx = withParams("slot", "one")
	h.deleteSave(c, ctx)
	assert.Equal(t, consts.StatusOK, ctx.Response.StatusCode())

	ctx = withParams("slot", "one")
	h.load(c, ctx)
	assert.Equal(t, consts.StatusNotFound, ctx.Response.StatusCode())
}

func TestEquipRoutes(t *testing.T) {
	h, _ := newHandler(t)
	c := context.Background()

	ctx := withParams("item", "wooden_sword")
	h.equip(c, ctx)
	assert.Equal(t, consts.StatusConflict, ctx.Response.StatusCode())

	ctx = withParams("item", "health_potion")
	h.equip(c, ctx)
	assert.Equal(t, consts.StatusBadRequest, ctx.Response.StatusCode())

	ctx = withParams("slot", "hat")
	h.unequip(c, ctx)
	assert.Equal(t, consts.StatusBadRequest, ctx.Response.StatusCode())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("wrapped: %w", quest.ErrUnknownQuest), consts.StatusNotFound},
		{save.ErrNotFound, consts.StatusNotFound},
		{profession.ErrUnsupportedOperation, consts.StatusBadRequest},
		{combat.ErrAlreadyInCombat, consts.StatusConflict},
		{profession.ErrInsufficientMaterials, consts.StatusConflict},
		{save.ErrCorrupt, consts.StatusUnprocessableEntity},
		{engine.ErrNoRepository, consts.StatusServiceUnavailable},
		{errors.New("boom"), consts.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _ := classify(tt.err)
		assert.Equal(t, tt.status, status, "classify(%v)", tt.err)
	}
}

func TestApplyCORSHeaders(t *testing.T) {
	ctx := &app.RequestContext{}
	applyCORSHeaders(ctx)
	assert.Equal(t, "*", string(ctx.Response.Header.Peek("Access-Control-Allow-Origin")))
	assert.Equal(t, corsAllowMethods, string(ctx.Response.Header.Peek("Access-Control-Allow-Methods")))
}
