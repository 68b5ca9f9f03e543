package routemessage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/models"
	conversationhistory "directory-assistant/internal/workers/ai-conversation/conversation-history"
	messagelog "directory-assistant/internal/workers/dialogue/message-log"
	leadrepository "directory-assistant/internal/workers/leads/lead-repository"
	notifylead "directory-assistant/internal/workers/leads/notify-lead"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================================
// Fakes
// ==========================================

type fakeClassifier struct {
	intent models.Intent
	delay  time.Duration
	calls  int32
}

func (f *fakeClassifier) Classify(ctx context.Context, conversationID, text string) models.Intent {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.intent
}

type fakeSearcher struct {
	result *models.SearchResult
	err    error
	last   models.Query
	calls  int
}

func (f *fakeSearcher) Search(ctx context.Context, q models.Query) (*models.SearchResult, error) {
	f.calls++
	f.last = q
	return f.result, f.err
}

type fakeCatalog struct {
	nearby     []models.Business
	products   []models.Product
	prices     []models.SupplierPrice
	categories []models.CategoryCount
	err        error
}

func (f *fakeCatalog) NearbyBusinesses(ctx context.Context, loc models.Location, limit int) ([]models.Business, error) {
	return f.nearby, f.err
}

func (f *fakeCatalog) SearchProducts(ctx context.Context, term string, limit int) ([]models.Product, error) {
	return f.products, f.err
}

func (f *fakeCatalog) SupplierPrices(ctx context.Context, term string, limit int) ([]models.SupplierPrice, error) {
	return f.prices, f.err
}

func (f *fakeCatalog) Categories(ctx context.Context) ([]models.CategoryCount, error) {
	return f.categories, f.err
}

type fakeChat struct {
	calls int
}

func (f *fakeChat) Reply(ctx context.Context, conversationID, text string) string {
	f.calls++
	return "chat: " + text
}

type fakeLeads struct {
	mu        sync.Mutex
	byConv    map[string]*models.Lead
	findErr   error
	createErr error
	created   []*models.Lead
}

func newFakeLeads() *fakeLeads {
	return &fakeLeads{byConv: make(map[string]*models.Lead)}
}

func (f *fakeLeads) FindByConversation(ctx context.Context, conversationID string) (*models.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	lead, ok := f.byConv[conversationID]
	if !ok {
		return nil, leadrepository.ErrLeadNotFound
	}
	return lead, nil
}

func (f *fakeLeads) Create(ctx context.Context, lead *models.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.byConv[lead.ConversationID] = lead
	f.created = append(f.created, lead)
	return nil
}

func (f *fakeLeads) UpdateCRMSync(ctx context.Context, id, status, contactID string) error {
	return nil
}

type fakeMessages struct {
	mu        sync.Mutex
	exchanges []models.Exchange
	saveErr   error
	stats     *messagelog.Stats
	statsErr  error
}

func (f *fakeMessages) SaveExchange(ctx context.Context, exchange *models.Exchange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges = append(f.exchanges, *exchange)
	return f.saveErr
}

func (f *fakeMessages) Stats(ctx context.Context) (*messagelog.Stats, error) {
	return f.stats, f.statsErr
}

func (f *fakeMessages) saved() []models.Exchange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Exchange(nil), f.exchanges...)
}

type fakeFollowUp struct {
	mu    sync.Mutex
	leads []string
}

func (f *fakeFollowUp) FollowUp(ctx context.Context, lead *models.Lead) *notifylead.Output {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leads = append(f.leads, lead.ID)
	return &notifylead.Output{}
}

type testRig struct {
	handler    *Handler
	classifier *fakeClassifier
	search     *fakeSearcher
	catalog    *fakeCatalog
	chat       *fakeChat
	history    *conversationhistory.Store
	leads      *fakeLeads
	messages   *fakeMessages
	followUp   *fakeFollowUp
}

func createTestConfig() *Config {
	cfg := LoadConfig()
	cfg.LogTimeout = time.Second
	cfg.FollowUpTimeout = time.Second
	return cfg
}

func newRig(t *testing.T) *testRig {
	r := &testRig{
		classifier: &fakeClassifier{intent: models.DefaultIntent()},
		search:     &fakeSearcher{result: models.NewSearchResult("", nil, nil, false)},
		catalog:    &fakeCatalog{},
		chat:       &fakeChat{},
		history:    conversationhistory.NewStore(conversationhistory.LoadConfig()),
		leads:      newFakeLeads(),
		messages:   &fakeMessages{stats: &messagelog.Stats{Messages: 42, Commands: 7}},
		followUp:   &fakeFollowUp{},
	}
	r.handler = NewHandler(createTestConfig(), Dependencies{
		Classifier: r.classifier,
		Search:     r.search,
		Catalog:    r.catalog,
		Chat:       r.chat,
		History:    r.history,
		Leads:      r.leads,
		Messages:   r.messages,
		FollowUp:   r.followUp,
	}, logger.NewTestLogger(t))
	r.handler.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func (r *testRig) route(text string) string {
	reply := r.handler.Route(context.Background(), "chat-1", text)
	r.handler.Wait()
	return reply
}

func (r *testRig) classifyAs(intentType models.IntentType, term string, confidence float64) {
	r.classifier.intent = models.Intent{Type: intentType, SearchTerm: term, Confidence: confidence}
}

func floatPtr(v float64) *float64 { return &v }

func businesses(n int) []models.Business {
	out := make([]models.Business, n)
	for i := range out {
		out[i] = models.Business{ID: int64(i + 1), Name: fmt.Sprintf("Interno %d", i+1), Category: "ferretería"}
	}
	return out
}

func externals(n int) []models.CacheEntry {
	out := make([]models.CacheEntry, n)
	for i := range out {
		out[i] = models.CacheEntry{ExternalPlace: models.ExternalPlace{
			Source:       "google_places",
			BusinessName: fmt.Sprintf("Externo %d", i+1),
			Rating:       floatPtr(4.5),
		}}
	}
	return out
}

// ==========================================
// Commands
// ==========================================

func TestCommands(t *testing.T) {
	tests := []struct {
		name     string
		userName string
		text     string
		contains []string
	}{
		{"start greets by name", "Ana", "/start", []string{"¡Hola Ana!", "/help"}},
		{"start without name", "", "/start", []string{"¡Bienvenido a Alexia! 🤖"}},
		{"help", "", "/help", []string{"/cerca", "/categorias", "/reset"}},
		{"help with bot suffix", "", "/HELP@AlexiaBot", []string{"Comandos disponibles"}},
		{"unknown", "", "/pizza", []string{replyUnknownCommand}},
		{"status", "", "/status", []string{"Mensajes procesados: 42", "Comandos ejecutados: 7", "01/03/2025 12:00:00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)

			out, err := r.handler.Execute(context.Background(), &Input{ConversationID: "c1", Text: tt.text, UserName: tt.userName})
			r.handler.Wait()

			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, out.Reply, s)
			}
			assert.Zero(t, atomic.LoadInt32(&r.classifier.calls))
		})
	}
}

func TestCommand_StatusWithoutStats(t *testing.T) {
	r := newRig(t)
	r.messages.statsErr = errors.New("db down")

	reply := r.route("/status")

	assert.Contains(t, reply, "no disponibles")
	assert.Contains(t, reply, "Conversaciones activas")
}

func TestCommand_Nearby(t *testing.T) {
	r := newRig(t)
	r.catalog.nearby = []models.Business{
		{Name: "Panadería La Espiga", Category: "panadería", Phone: "601 2345678", DistanceMeters: floatPtr(850)},
		{Name: "Ferretería Central", WhatsApp: "+57 300 1112233", DistanceMeters: floatPtr(1500)},
	}

	reply := r.route("/cerca")

	assert.Contains(t, reply, "Encontré 2 negocio(s) cercanos")
	assert.Contains(t, reply, "Radio de búsqueda: 3.0km")
	assert.Contains(t, reply, "1. 🏪 Panadería La Espiga")
	assert.Contains(t, reply, "📏 850m")
	assert.Contains(t, reply, "📏 1.5km")
	assert.Contains(t, reply, "💬 WhatsApp: +57 300 1112233")
}

func TestCommand_NearbyEmptyAndError(t *testing.T) {
	r := newRig(t)
	assert.Contains(t, r.route("/cerca"), "No encontré negocios cercanos")

	r.catalog.err = errors.New("timeout")
	assert.Equal(t, replyNearbyFailed, r.route("/cerca"))
}

func TestCommand_Categories(t *testing.T) {
	r := newRig(t)
	r.catalog.categories = []models.CategoryCount{{Category: "panadería", Count: 4}, {Category: "ferretería", Count: 2}}

	reply := r.route("/categorias")

	assert.Contains(t, reply, "1. panadería (4)")
	assert.Contains(t, reply, "2. ferretería (2)")
}

func TestCommand_ResetClearsHistoryAndPendingConsent(t *testing.T) {
	r := newRig(t)
	r.history.Append("chat-1", models.RoleUser, "hola")
	r.classifyAs(models.IntentLeadCapture, "", 0.95)
	r.route("quiero registrarme")

	reply := r.route("/reset")

	assert.Equal(t, replyReset, reply)
	assert.Zero(t, r.history.Size("chat-1"))
	state, err := r.handler.LeadState(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Equal(t, LeadStateNone, state)
}

// ==========================================
// Confidence gate and dispatch
// ==========================================

func TestConfidenceGate(t *testing.T) {
	r := newRig(t)
	r.search.result = models.NewSearchResult("ferreterías", businesses(1), nil, false)

	r.classifyAs(models.IntentBusinessSearch, "ferreterías", 0.75)
	assert.Equal(t, "chat: busca ferreterías", r.route("busca ferreterías"))
	assert.Zero(t, r.search.calls)

	r.classifyAs(models.IntentBusinessSearch, "ferreterías", 0.751)
	assert.Contains(t, r.route("busca ferreterías"), "CERCA DE TI (base interna)")
	assert.Equal(t, 1, r.search.calls)
}

func TestGeneralQuery_GoesToChat(t *testing.T) {
	r := newRig(t)
	r.classifyAs(models.IntentGeneralQuery, "", 1.0)

	assert.Equal(t, "chat: hola", r.route("  hola  "))
	assert.Equal(t, 1, r.chat.calls)
}

func TestUnknownIntent_GoesToChat(t *testing.T) {
	r := newRig(t)
	r.classifyAs(models.IntentType("ORDER_FOOD"), "", 0.99)

	assert.Equal(t, "chat: pide una pizza", r.route("pide una pizza"))
}

// ==========================================
// Business search
// ==========================================

func TestBusinessSearch_DefaultLocationAndCaps(t *testing.T) {
	r := newRig(t)
	r.classifyAs(models.IntentBusinessSearch, "ferreterías", 0.98)
	r.search.result = models.NewSearchResult("ferreterías", businesses(7), externals(7), false)

	reply := r.route("Busca ferreterías cerca")

	assert.Equal(t, "ferreterías", r.search.last.Text)
	require.NotNil(t, r.search.last.Latitude)
	assert.Equal(t, 4.7110, *r.search.last.Latitude)
	assert.Equal(t, -74.0721, *r.search.last.Longitude)
	assert.Equal(t, 3000, *r.search.last.RadiusMeters)

	assert.Contains(t, reply, "📍 CERCA DE TI (base interna):")
	assert.Contains(t, reply, "🌐 OTROS PROVEEDORES (web - Google Places):")
	assert.Contains(t, reply, "5. Interno 5")
	assert.NotContains(t, reply, "Interno 6")
	assert.Contains(t, reply, "10. Externo 5")
	assert.NotContains(t, reply, "Externo 6")
	assert.Contains(t, reply, "Resultados combinados")
}

func TestBusinessSearch_SourceLabels(t *testing.T) {
	tests := []struct {
		name     string
		result   *models.SearchResult
		contains string
		absent   string
	}{
		{"internal only", models.NewSearchResult("pan", businesses(3), nil, false), "base de datos interna", "OTROS PROVEEDORES"},
		{"external only", models.NewSearchResult("pan", nil, externals(2), true), "fuentes web externas", "CERCA DE TI"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			r.classifyAs(models.IntentBusinessSearch, "pan", 0.9)
			r.search.result = tt.result

			reply := r.route("pan")

			assert.Contains(t, reply, tt.contains)
			assert.NotContains(t, reply, tt.absent)
		})
	}
}

func TestBusinessSearch_NoResultsAndFailure(t *testing.T) {
	r := newRig(t)
	r.classifyAs(models.IntentBusinessSearch, "zapaterías", 0.9)

	assert.Contains(t, r.route("zapaterías"), "No encontré resultados para 'zapaterías'")

	r.search.err = errors.New("connection refused")
	assert.Equal(t, replySearchFailed, r.route("zapaterías"))
}

func TestBusinessSearch_MissingTerm(t *testing.T) {
	r := newRig(t)
	r.classifyAs(models.IntentBusinessSearch, " ", 0.9)

	assert.Equal(t, replyMissingBusinessTerm, r.route("busca algo"))
	assert.Zero(t, r.search.calls)
}

// ==========================================
// Products and prices
// ==========================================

func TestProductSearch_FormatsAndCaps(t *testing.T) {
	r := newRig(t)
	r.classifyAs(models.IntentProductSearch, "vasos", 0.9)
	for i := 0; i < 12; i++ {
		r.catalog.products = append(r.catalog.products, models.Product{
			Name:         fmt.Sprintf("Vaso %d oz", i+1),
			Category:     "vasos",
			Price:        150,
			SupplierName: "Plásticos SAS",
		})
	}

	reply := r.route("vasos")

	assert.Contains(t, reply, "Encontré 12 productos con \"vasos\"")
	assert.Contains(t, reply, "1. 🥤 Vaso 1 oz")
	assert.Contains(t, reply, "10. 🥤 Vaso 10 oz")
	assert.NotContains(t, reply, "Vaso 11 oz")
	assert.Contains(t, reply, "... y 2 más")
	assert.Contains(t, reply, "🏪 Plásticos SAS")
	assert.Zero(t, r.search.calls)
}

func TestProductSearch_FallsBackToHybridSearch(t *testing.T) {
	r := newRig(t)
	r.classifyAs(models.IntentProductSearch, "pan", 0.9)
	r.search.result = models.NewSearchResult("pan", businesses(1), nil, false)

	reply := r.route("quiero pan")

	assert.Equal(t, 1, r.search.calls)
	assert.Contains(t, reply, "Interno 1")
}

func TestProductSearch_Failure(t *testing.T) {
	r := newRig(t)
	r.classifyAs(models.IntentProductSearch, "pan", 0.9)
	r.catalog.err = errors.New("boom")

	assert.Equal(t, replyProductsFailed, r.route("quiero pan"))
}

func TestComparePrices_SortedAscending(t *testing.T) {
	r := newRig(t)
	r.classifyAs(models.IntentComparePrices, "vasos", 0.9)
	r.catalog.prices = []models.SupplierPrice{
		{SupplierName: "Caro", ProductName: "vasos", Price: 300},
		{SupplierName: "Barato", ProductName: "vasos", Price: 120},
		{SupplierName: "Medio", ProductName: "vasos 7oz", Price: 200},
	}

	reply := r.route("quién vende vasos más barato?")

	assert.Contains(t, reply, "⚖️ Comparativa de precios para 'vasos'")
	iBarato := strings.Index(reply, "1. Barato")
	iMedio := strings.Index(reply, "2. Medio")
	iCaro := strings.Index(reply, "3. Caro")
	require.True(t, iBarato >= 0 && iMedio >= 0 && iCaro >= 0, reply)
	assert.Less(t, iBarato, iMedio)
	assert.Less(t, iMedio, iCaro)
	assert.Contains(t, reply, "(vasos 7oz)")
	assert.Contains(t, reply, "Mejor precio: Barato")
}

func TestComparePrices_EmptyAndMissingTerm(t *testing.T) {
	r := newRig(t)
	r.classifyAs(models.IntentComparePrices, "vasos", 0.9)
	assert.Equal(t, "❌ No encontré proveedores para 'vasos'.", r.route("precios de vasos"))

	r.classifyAs(models.IntentComparePrices, "", 0.9)
	assert.Equal(t, replyMissingPriceTerm, r.route("compara precios"))
}

// ==========================================
// Lead capture
// ==========================================

func (r *testRig) classifyLead(fields *models.LeadFields) {
	r.classifier.intent = models.Intent{Type: models.IntentLeadCapture, Confidence: 0.95, Lead: fields}
}

func TestLead_NoConsentAsksForConsent(t *testing.T) {
	r := newRig(t)
	r.classifyLead(&models.LeadFields{HasConsent: false})

	out, err := r.handler.Execute(context.Background(), &Input{ConversationID: "chat-1", Text: "quiero registrarme", UserName: "Ana"})
	r.handler.Wait()

	require.NoError(t, err)
	assert.Contains(t, out.Reply, "¡Hola Ana!")
	assert.Contains(t, out.Reply, "consentimiento")
	assert.Empty(t, r.leads.created)

	state, err := r.handler.LeadState(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Equal(t, LeadStateAwaitingConsent, state)
}

func TestLead_ConsentCreatesLead(t *testing.T) {
	r := newRig(t)
	r.classifyLead(&models.LeadFields{HasConsent: false})
	r.route("quiero registrarme")

	r.classifyLead(&models.LeadFields{HasConsent: true, FirstName: "Juan", LastName: "Pérez", Phone: "300 1234567", City: "Bogotá"})
	reply := r.route("sí acepto, soy Juan Pérez, 300 1234567")

	require.Len(t, r.leads.created, 1)
	lead := r.leads.created[0]
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, "telegram", lead.Source)
	assert.Equal(t, models.LeadStatusNew, lead.Status)
	assert.True(t, lead.ConsentGiven)
	require.NotNil(t, lead.ConsentDate)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), *lead.ConsentDate)

	assert.Contains(t, reply, "¡Perfecto Juan!")
	assert.Contains(t, reply, "👤 Nombre: Juan Pérez")
	assert.Contains(t, reply, "📧 Email: No proporcionado")
	assert.Equal(t, []string{lead.ID}, r.followUp.leads)

	state, err := r.handler.LeadState(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Equal(t, LeadStateCaptured, state)
}

func TestLead_ExistingLeadReportsStatus(t *testing.T) {
	r := newRig(t)
	r.leads.byConv["chat-1"] = &models.Lead{
		ID: "l1", ConversationID: "chat-1", FirstName: "Juan", Status: models.LeadStatusContacted,
		Phone: "3001234567", ConsentGiven: true,
	}
	r.classifyLead(&models.LeadFields{HasConsent: true, FirstName: "Juan", Phone: "3009999999"})

	reply := r.route("regístrame otra vez")

	assert.Contains(t, reply, "¡Hola de nuevo Juan!")
	assert.Contains(t, reply, "Estado actual: Contactado")
	assert.Contains(t, reply, "Email: No registrado")
	assert.Contains(t, reply, "Otorgado ✓")
	assert.Empty(t, r.leads.created)
}

func TestLead_ConsentWithoutName(t *testing.T) {
	r := newRig(t)
	r.classifyLead(&models.LeadFields{HasConsent: true, Phone: "3001234567"})

	assert.Equal(t, replyNameMissing, r.route("sí acepto"))
	assert.Empty(t, r.leads.created)
}

func TestLead_ValidationPrompts(t *testing.T) {
	tests := []struct {
		name     string
		fields   *models.LeadFields
		contains string
	}{
		{"no contact", &models.LeadFields{HasConsent: true, FirstName: "Juan"}, "al menos un teléfono o un email"},
		{"bad phone", &models.LeadFields{HasConsent: true, FirstName: "Juan", Phone: "abc"}, "El teléfono 'abc' no parece válido"},
		{"bad email", &models.LeadFields{HasConsent: true, FirstName: "Juan", Email: "juan@"}, "El email 'juan@' no parece válido"},
		{"bad name", &models.LeadFields{HasConsent: true, FirstName: "J4n", Phone: "3001234567"}, "Tu nombre solo puede tener letras"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t)
			r.classifyLead(tt.fields)

			reply := r.route("sí acepto")

			assert.Contains(t, reply, tt.contains)
			assert.NotEqual(t, replyLeadFailed, reply)
			assert.Empty(t, r.leads.created)
			assert.Empty(t, r.followUp.leads)
		})
	}
}

func TestLead_RepositoryFailure(t *testing.T) {
	r := newRig(t)
	r.classifyLead(&models.LeadFields{HasConsent: true, FirstName: "Juan", Phone: "3001234567"})
	r.leads.createErr = errors.New("unique violation")

	assert.Equal(t, replyLeadFailed, r.route("sí acepto"))

	r.leads.createErr = nil
	r.leads.findErr = errors.New("db down")
	assert.Equal(t, replyLeadFailed, r.route("sí acepto"))
}

func TestLead_RefusalWhilePending(t *testing.T) {
	r := newRig(t)
	r.classifyLead(&models.LeadFields{HasConsent: false})
	r.route("quiero registrarme")
	calls := atomic.LoadInt32(&r.classifier.calls)

	reply := r.route("No, gracias")

	assert.Equal(t, replyConsentDeclined, reply)
	assert.Equal(t, calls, atomic.LoadInt32(&r.classifier.calls))
	state, _ := r.handler.LeadState(context.Background(), "chat-1")
	assert.Equal(t, LeadStateNone, state)
}

func TestIsRefusal(t *testing.T) {
	assert.True(t, isRefusal("No, gracias"))
	assert.True(t, isRefusal("¡no!"))
	assert.True(t, isRefusal("cancelar"))
	assert.False(t, isRefusal("nombre Juan"))
	assert.False(t, isRefusal("sí acepto"))
	assert.False(t, isRefusal(""))
	assert.True(t, isRefusal("No acepto."))
	assert.True(t, isRefusal("no por ahora"))
	assert.False(t, isRefusal("no tengo correo pero acepto, soy Ana"))
	assert.False(t, isRefusal("No sé"))
}

func TestLead_AcceptanceStartingWithNoIsClassified(t *testing.T) {
	r := newRig(t)
	r.classifyLead(&models.LeadFields{HasConsent: false})
	r.route("quiero registrarme")
	calls := atomic.LoadInt32(&r.classifier.calls)

	r.classifyLead(&models.LeadFields{HasConsent: true, FirstName: "Ana", Phone: "3001234567"})
	reply := r.route("no tengo correo pero acepto, soy Ana, 3001234567")

	assert.NotEqual(t, replyConsentDeclined, reply)
	assert.Equal(t, calls+1, atomic.LoadInt32(&r.classifier.calls))
	state, err := r.handler.LeadState(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Equal(t, LeadStateCaptured, state)
}

func TestLead_PendingConsentExpires(t *testing.T) {
	r := newRig(t)
	asked := r.handler.now()
	r.classifyLead(&models.LeadFields{HasConsent: false})
	r.route("quiero registrarme")

	r.handler.now = func() time.Time { return asked.Add(24*time.Hour - time.Second) }
	state, _ := r.handler.LeadState(context.Background(), "chat-1")
	assert.Equal(t, LeadStateAwaitingConsent, state)

	r.handler.now = func() time.Time { return asked.Add(24 * time.Hour) }
	state, _ = r.handler.LeadState(context.Background(), "chat-1")
	assert.Equal(t, LeadStateNone, state)

	calls := atomic.LoadInt32(&r.classifier.calls)
	r.classifyAs(models.IntentGeneralQuery, "", 1)
	reply := r.route("No, gracias")

	assert.Equal(t, "chat: No, gracias", reply)
	assert.Equal(t, calls+1, atomic.LoadInt32(&r.classifier.calls))
}

func TestPendingConsent_AddDropsAbandoned(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := newPendingConsent(time.Hour)

	p.add("old", t0)
	p.add("recent", t0.Add(30*time.Minute))
	assert.Equal(t, 2, p.size())

	p.add("new", t0.Add(2*time.Hour))

	assert.Equal(t, 1, p.size())
	assert.True(t, p.has("new", t0.Add(2*time.Hour)))
	assert.False(t, p.has("old", t0.Add(2*time.Hour)))
	assert.Equal(t, defaultConsentTTL, newPendingConsent(0).ttl)
}

// ==========================================
// Exchange logging and concurrency
// ==========================================

func TestExchangeIsLogged(t *testing.T) {
	r := newRig(t)
	r.classifyAs(models.IntentGeneralQuery, "", 1)

	r.route("hola")
	r.route("/help")

	saved := r.messages.saved()
	require.Len(t, saved, 2)
	assert.Equal(t, models.ExchangeMessage, saved[0].Kind)
	assert.Equal(t, models.IntentGeneralQuery, saved[0].Intent)
	assert.Equal(t, "chat: hola", saved[0].Reply)
	assert.Equal(t, models.ExchangeCommand, saved[1].Kind)
}

func TestExchangeLogFailureIsSwallowed(t *testing.T) {
	r := newRig(t)
	r.messages.saveErr = errors.New("disk full")

	assert.Equal(t, "chat: hola", r.route("hola"))
}

func TestExecute_InvalidInput(t *testing.T) {
	r := newRig(t)

	_, err := r.handler.Execute(context.Background(), &Input{Text: "hola"})
	assert.ErrorIs(t, err, ErrMissingConversation)

	_, err = r.handler.Execute(context.Background(), &Input{ConversationID: "c", Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	assert.Empty(t, r.handler.Route(context.Background(), "c", ""))
}

type concurrencyProbe struct {
	mu      sync.Mutex
	active  map[string]int
	maxSame int
	maxAll  int
	current int
}

func (p *concurrencyProbe) Classify(ctx context.Context, conversationID, text string) models.Intent {
	p.mu.Lock()
	p.active[conversationID]++
	p.current++
	if p.active[conversationID] > p.maxSame {
		p.maxSame = p.active[conversationID]
	}
	if p.current > p.maxAll {
		p.maxAll = p.current
	}
	p.mu.Unlock()

	time.Sleep(30 * time.Millisecond)

	p.mu.Lock()
	p.active[conversationID]--
	p.current--
	p.mu.Unlock()
	return models.DefaultIntent()
}

func TestRoute_SerializesPerConversation(t *testing.T) {
	r := newRig(t)
	probe := &concurrencyProbe{active: make(map[string]int)}
	r.handler.classifier = probe

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.handler.Route(context.Background(), fmt.Sprintf("chat-%d", i%2), "hola")
		}(i)
	}
	wg.Wait()
	r.handler.Wait()

	assert.Equal(t, 1, probe.maxSame)
	assert.LessOrEqual(t, probe.maxAll, 2)
	assert.Zero(t, r.handler.locks.size())
}

// ==========================================
// Helpers
// ==========================================

func TestTranslateStatus(t *testing.T) {
	assert.Equal(t, "Nuevo", translateStatus("new"))
	assert.Equal(t, "Contactado", translateStatus("contacted"))
	assert.Equal(t, "Calificado", translateStatus("qualified"))
	assert.Equal(t, "Convertido", translateStatus("converted"))
	assert.Equal(t, "Perdido", translateStatus("lost"))
	assert.Equal(t, "Archivado", translateStatus("archived"))
	assert.Equal(t, "pending_review", translateStatus("pending_review"))
}

func TestProductEmoji(t *testing.T) {
	assert.Equal(t, "🥤", productEmoji("Vasos desechables"))
	assert.Equal(t, "🔧", productEmoji("herramientas"))
	assert.Equal(t, "📦", productEmoji(""))
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "/start", commandName("/Start ahora"))
	assert.Equal(t, "/help", commandName("/help@AlexiaBot"))
	assert.Equal(t, "", commandName("   "))
}
