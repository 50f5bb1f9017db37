// Admin API tests in Cardpack.

package admin

import (
	"Cardpack/internal/auth"
	"Cardpack/internal/catalog"
	"Cardpack/internal/collection"
	"Cardpack/internal/droprate"
	"Cardpack/internal/entity"
	"Cardpack/internal/metrics"
	"Cardpack/internal/sequencer"
	"Cardpack/internal/test"
	"Cardpack/internal/viewer"
	"Cardpack/pkg/log"
	"Cardpack/pkg/validations"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Global context
var ctx context.Context = context.Background()

type mockQueue struct {
	mu       sync.Mutex
	requests []entity.OpeningRequest
	err      error
}

func (m *mockQueue) Enqueue(req entity.OpeningRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.requests = append(m.requests, req)
	return nil
}

func (m *mockQueue) State() sequencer.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sequencer.State{Queued: len(m.requests)}
}

type fixture struct {
	router   *gin.Engine
	services Services
	queue    *mockQueue
	headers  map[string]string
}

// Helper to build up a mock router instance for testing the admin surface.
func setupMockRouter(t *testing.T) fixture {
	validations.RegisterCustomValidations(ctx, log.Nop())
	client, _ := test.MockRedis(t)
	catalogService := catalog.NewService(catalog.NewRepository(client), log.Nop())
	queue := &mockQueue{}
	services := Services{
		Catalog:    catalogService,
		DropRates:  droprate.NewService(droprate.NewRepository(client), log.Nop()),
		Viewers:    viewer.NewService(viewer.NewRepository(client), log.Nop()),
		Collection: collection.NewService(collection.NewRepository(client), catalogService, log.Nop()),
		Metrics:    metrics.NewService(metrics.NewRepository(client), log.Nop()),
		Queue:      queue,
		AssetsPath: t.TempDir(),
	}
	router := test.MockRouter()
	adminGroup := router.Group("/api/admin", auth.AdminMiddleware(log.Nop(), auth.NewRepository(client), test.MockAdminSecret))
	APIHandlers(adminGroup, services, log.Nop())
	return fixture{router, services, queue, test.Bearer(test.MockAdminToken(t, auth.RoleAdmin))}
}

func (f fixture) call(t *testing.T, method, path string, body interface{}, want int) []byte {
	t.Helper()
	w := test.ExecuteAPITest(t, f.router, test.RequestAPITest{
		Method:       method,
		Path:         path,
		Body:         body,
		Headers:      f.headers,
		WantResponse: []int{want},
	})
	return w.Body.Bytes()
}

func TestAdminRequiresToken(t *testing.T) {
	f := setupMockRouter(t)
	test.ExecuteAPITest(t, f.router, test.RequestAPITest{
		Method:       http.MethodGet,
		Path:         "/api/admin/drop-rates",
		WantResponse: []int{http.StatusUnauthorized},
	})
	test.ExecuteAPITest(t, f.router, test.RequestAPITest{
		Method:       http.MethodGet,
		Path:         "/api/admin/drop-rates",
		Headers:      test.Bearer(test.MockAdminToken(t, "moderator")),
		WantResponse: []int{http.StatusForbidden},
	})
}

func TestDropRates(t *testing.T) {
	f := setupMockRouter(t)

	tests := []struct {
		name   string
		rarity string
		body   interface{}
		want   int
	}{
		{"number", "COMMON", map[string]interface{}{"rate": 0.5}, http.StatusOK},
		{"lower case tier", "uncommon", map[string]interface{}{"rate": 0.25}, http.StatusOK},
		{"zero disables a tier", "RARE", map[string]interface{}{"rate": 0}, http.StatusOK},
		{"numeric string", "EPIC", map[string]interface{}{"rate": "0.02"}, http.StatusOK},
		{"above one", "COMMON", map[string]interface{}{"rate": 2}, http.StatusBadRequest},
		{"negative", "COMMON", map[string]interface{}{"rate": -0.1}, http.StatusBadRequest},
		{"missing", "COMMON", map[string]interface{}{}, http.StatusBadRequest},
		{"not a number", "COMMON", map[string]interface{}{"rate": "lots"}, http.StatusBadRequest},
		{"unknown tier", "MYTHIC", map[string]interface{}{"rate": 0.1}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.call(t, http.MethodPut, "/api/admin/drop-rates/"+tt.rarity, tt.body, tt.want)
		})
	}

	var rates []entity.DropRate
	require.NoError(t, json.Unmarshal(f.call(t, http.MethodGet, "/api/admin/drop-rates", nil, http.StatusOK), &rates))
	assert.Equal(t, []entity.DropRate{
		{Rarity: entity.Common, Rate: 0.5},
		{Rarity: entity.Uncommon, Rate: 0.25},
		{Rarity: entity.Rare, Rate: 0},
		{Rarity: entity.Epic, Rate: 0.02},
	}, rates)
}

func TestSetsAndCards(t *testing.T) {
	f := setupMockRouter(t)

	var set entity.Set
	require.NoError(t, json.Unmarshal(f.call(t, http.MethodPost, "/api/admin/sets", map[string]string{"name": "Starter"}, http.StatusCreated), &set))
	assert.NotEmpty(t, set.ID)
	f.call(t, http.MethodPost, "/api/admin/sets", map[string]string{}, http.StatusBadRequest)

	var card entity.Card
	require.NoError(t, json.Unmarshal(f.call(t, http.MethodPost, "/api/admin/cards", map[string]string{
		"name": "Card One", "rarity": "COMMON", "set_id": set.ID, "image": "http://elsewhere/x.png",
	}, http.StatusCreated), &card))
	assert.Empty(t, card.Image)
	f.call(t, http.MethodPost, "/api/admin/cards", map[string]string{"name": "Card Two", "rarity": "RARE", "set_id": set.ID}, http.StatusCreated)
	f.call(t, http.MethodPost, "/api/admin/cards", map[string]string{"name": "Orphan", "rarity": "RARE", "set_id": "nope"}, http.StatusBadRequest)
	f.call(t, http.MethodPost, "/api/admin/cards", map[string]string{"name": "Odd", "rarity": "MYTHIC", "set_id": set.ID}, http.StatusBadRequest)

	var fetched entity.Set
	require.NoError(t, json.Unmarshal(f.call(t, http.MethodGet, "/api/admin/sets/"+set.ID, nil, http.StatusOK), &fetched))
	assert.Equal(t, 2, fetched.TotalCards)
	f.call(t, http.MethodGet, "/api/admin/sets/nope", nil, http.StatusNotFound)

	var cards []entity.Card
	require.NoError(t, json.Unmarshal(f.call(t, http.MethodGet, "/api/admin/cards?rarity=common", nil, http.StatusOK), &cards))
	require.Len(t, cards, 1)
	assert.Equal(t, card.ID, cards[0].ID)
	require.NoError(t, json.Unmarshal(f.call(t, http.MethodGet, "/api/admin/cards?set_id="+set.ID, nil, http.StatusOK), &cards))
	assert.Len(t, cards, 2)

	var got entity.Card
	require.NoError(t, json.Unmarshal(f.call(t, http.MethodGet, "/api/admin/cards/"+card.ID, nil, http.StatusOK), &got))
	assert.Equal(t, card, got)
	f.call(t, http.MethodGet, "/api/admin/cards/nope", nil, http.StatusNotFound)

	var sets []entity.Set
	require.NoError(t, json.Unmarshal(f.call(t, http.MethodGet, "/api/admin/sets", nil, http.StatusOK), &sets))
	assert.Len(t, sets, 1)
}

func TestUploadCardImage(t *testing.T) {
	f := setupMockRouter(t)
	set, err := f.services.Catalog.CreateSet(ctx, entity.Set{Name: "Starter"})
	require.NoError(t, err)
	card, err := f.services.Catalog.CreateCard(ctx, entity.Card{Name: "Card One", Rarity: entity.Common, SetID: set.ID})
	require.NoError(t, err)

	png := append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
	var updated entity.Card
	require.NoError(t, json.Unmarshal(f.call(t, http.MethodPut, "/api/admin/cards/"+card.ID+"/image", png, http.StatusOK), &updated))
	assert.Equal(t, AssetsURLPrefix+"/cards/"+card.ID+".png", updated.Image)
	stored, err := os.ReadFile(filepath.Join(f.services.AssetsPath, "cards", card.ID+".png"))
	require.NoError(t, err)
	assert.Equal(t, png, stored)

	gif := append([]byte("GIF89a"), make([]byte, 64)...)
	require.NoError(t, json.Unmarshal(f.call(t, http.MethodPut, "/api/admin/cards/"+card.ID+"/image", gif, http.StatusOK), &updated))
	assert.Equal(t, AssetsURLPrefix+"/cards/"+card.ID+".gif", updated.Image)
	_, err = os.Stat(filepath.Join(f.services.AssetsPath, "cards", card.ID+".png"))
	assert.True(t, os.IsNotExist(err))

	f.call(t, http.MethodPut, "/api/admin/cards/"+card.ID+"/image", []byte("just some text, not an image"), http.StatusUnsupportedMediaType)
	f.call(t, http.MethodPut, "/api/admin/cards/nope/image", png, http.StatusNotFound)
}

func TestViewerCollection(t *testing.T) {
	f := setupMockRouter(t)
	set, err := f.services.Catalog.CreateSet(ctx, entity.Set{Name: "Starter"})
	require.NoError(t, err)
	card, err := f.services.Catalog.CreateCard(ctx, entity.Card{Name: "Card One", Rarity: entity.Common, SetID: set.ID})
	require.NoError(t, err)
	v, err := f.services.Viewers.FindOrCreate(ctx, "42", "alice")
	require.NoError(t, err)
	require.NoError(t, f.services.Collection.AddCard(ctx, v.ID, card.ID, 3))

	var body struct {
		Viewer entity.Viewer             `json:"viewer"`
		Cards  []entity.CollectionEntry `json:"cards"`
	}
	require.NoError(t, json.Unmarshal(f.call(t, http.MethodGet, "/api/admin/viewers/"+v.ID+"/collection", nil, http.StatusOK), &body))
	assert.Equal(t, v, body.Viewer)
	assert.Equal(t, []entity.CollectionEntry{{CardID: card.ID, Quantity: 3}}, body.Cards)

	f.call(t, http.MethodGet, "/api/admin/viewers/ghost/collection", nil, http.StatusNotFound)
}

func TestManualOpening(t *testing.T) {
	f := setupMockRouter(t)
	set, err := f.services.Catalog.CreateSet(ctx, entity.Set{Name: "Starter"})
	require.NoError(t, err)

	var req entity.OpeningRequest
	require.NoError(t, json.Unmarshal(f.call(t, http.MethodPost, "/api/admin/openings", map[string]string{
		"twitch_id": "42", "username": "alice", "set_id": set.ID,
	}, http.StatusAccepted), &req))
	assert.NotEmpty(t, req.RequestID)
	assert.Equal(t, "42", req.ExternalViewerID)
	assert.Equal(t, "alice", req.DisplayName)
	assert.Equal(t, set.ID, req.SetID)
	assert.Equal(t, originAdmin, req.OriginClient)
	require.Len(t, f.queue.requests, 1)
	assert.Equal(t, req, f.queue.requests[0])

	v, err := f.services.Viewers.FindOrCreate(ctx, "42", "alice")
	require.NoError(t, err)
	assert.Equal(t, v.ID, req.ViewerID)

	f.call(t, http.MethodPost, "/api/admin/openings", map[string]string{"twitch_id": "42", "username": "alice", "set_id": "nope"}, http.StatusNotFound)
	f.call(t, http.MethodPost, "/api/admin/openings", map[string]string{"twitch_id": "4 2", "username": "alice", "set_id": set.ID}, http.StatusBadRequest)
	f.call(t, http.MethodPost, "/api/admin/openings", map[string]string{"set_id": set.ID}, http.StatusBadRequest)

	var state sequencer.State
	require.NoError(t, json.Unmarshal(f.call(t, http.MethodGet, "/api/admin/queue", nil, http.StatusOK), &state))
	assert.Equal(t, 1, state.Queued)

	f.queue.err = sequencer.ErrStopped
	f.call(t, http.MethodPost, "/api/admin/openings", map[string]string{"twitch_id": "42", "username": "alice", "set_id": set.ID}, http.StatusServiceUnavailable)
}

func TestMetrics(t *testing.T) {
	f := setupMockRouter(t)
	require.NoError(t, f.services.Metrics.RecordOpening(ctx, entity.Rare))

	var counters entity.Metrics
	require.NoError(t, json.Unmarshal(f.call(t, http.MethodGet, "/api/admin/metrics", nil, http.StatusOK), &counters))
	assert.Equal(t, int64(1), counters.OpeningsTotal)
	assert.Equal(t, int64(1), counters.OpeningsByRarity[entity.Rare])
}

func TestUpdateAndDeleteCatalog(t *testing.T) {
	f := setupMockRouter(t)

	var starter, promo entity.Set
	require.NoError(t, json.Unmarshal(f.call(t, http.MethodPost, "/api/admin/sets", map[string]string{"id": "starter", "name": "Starter"}, http.StatusCreated), &starter))
	require.NoError(t, json.Unmarshal(f.call(t, http.MethodPost, "/api/admin/sets", map[string]string{"name": "Promo"}, http.StatusCreated), &promo))
	f.call(t, http.MethodPost, "/api/admin/sets", map[string]string{"id": "starter", "name": "Clobbered"}, http.StatusConflict)

	var card entity.Card
	require.NoError(t, json.Unmarshal(f.call(t, http.MethodPost, "/api/admin/cards", map[string]string{
		"id": "c1", "name": "Card One", "rarity": "COMMON", "set_id": starter.ID,
	}, http.StatusCreated), &card))
	png := append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
	require.NoError(t, json.Unmarshal(f.call(t, http.MethodPut, "/api/admin/cards/c1/image", png, http.StatusOK), &card))
	f.call(t, http.MethodPost, "/api/admin/cards", map[string]string{
		"id": "c1", "name": "Dup", "rarity": "LEGENDARY", "set_id": promo.ID,
	}, http.StatusConflict)

	var renamed entity.Set
	require.NoError(t, json.Unmarshal(f.call(t, http.MethodPut, "/api/admin/sets/"+starter.ID, map[string]string{"name": "Base Set"}, http.StatusOK), &renamed))
	assert.Equal(t, "Base Set", renamed.Name)
	assert.Equal(t, 1, renamed.TotalCards)
	f.call(t, http.MethodPut, "/api/admin/sets/"+starter.ID, map[string]string{}, http.StatusBadRequest)
	f.call(t, http.MethodPut, "/api/admin/sets/nope", map[string]string{"name": "Ghost"}, http.StatusNotFound)

	var moved entity.Card
	require.NoError(t, json.Unmarshal(f.call(t, http.MethodPut, "/api/admin/cards/c1", map[string]string{
		"name": "Card One", "rarity": "RARE", "set_id": promo.ID,
	}, http.StatusOK), &moved))
	assert.Equal(t, entity.Rare, moved.Rarity)
	assert.Equal(t, promo.ID, moved.SetID)
	assert.Equal(t, card.Image, moved.Image)
	f.call(t, http.MethodPut, "/api/admin/cards/c1", map[string]string{"name": "Card One", "rarity": "RARE", "set_id": "nope"}, http.StatusBadRequest)
	f.call(t, http.MethodPut, "/api/admin/cards/nope", map[string]string{"name": "Ghost", "rarity": "RARE"}, http.StatusNotFound)

	// starter is empty now, promo holds the moved card
	f.call(t, http.MethodDelete, "/api/admin/sets/"+promo.ID, nil, http.StatusBadRequest)
	f.call(t, http.MethodDelete, "/api/admin/sets/"+starter.ID, nil, http.StatusNoContent)
	f.call(t, http.MethodGet, "/api/admin/sets/"+starter.ID, nil, http.StatusNotFound)

	f.call(t, http.MethodDelete, "/api/admin/cards/c1", nil, http.StatusNoContent)
	f.call(t, http.MethodGet, "/api/admin/cards/c1", nil, http.StatusNotFound)
	f.call(t, http.MethodDelete, "/api/admin/cards/c1", nil, http.StatusNotFound)
	_, err := os.Stat(filepath.Join(f.services.AssetsPath, "cards", "c1.png"))
	assert.True(t, os.IsNotExist(err))

	f.call(t, http.MethodDelete, "/api/admin/sets/"+promo.ID, nil, http.StatusNoContent)
	var sets []entity.Set
	require.NoError(t, json.Unmarshal(f.call(t, http.MethodGet, "/api/admin/sets", nil, http.StatusOK), &sets))
	assert.Empty(t, sets)
}
