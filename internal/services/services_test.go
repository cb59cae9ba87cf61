package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/run-bigpig/traefin/internal/api"
	"github.com/run-bigpig/traefin/internal/storage"
)

// fakeBackend 测试用假后端，按路由注册处理函数
type fakeBackend struct {
	mux    *http.ServeMux
	server *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &fakeBackend{mux: mux, server: server}
}

func (b *fakeBackend) handle(pattern string, fn http.HandlerFunc) {
	b.mux.HandleFunc(pattern, fn)
}

// writeSuccess 写一个 success 信封，data 序列化进 data 字段
func writeSuccess(w http.ResponseWriter, data any) {
	writeEnvelope(w, http.StatusOK, "success", "", "", data)
}

// writeInfo 写一个 info 信封
func writeInfo(w http.ResponseWriter, message, code string) {
	writeEnvelope(w, http.StatusOK, "info", message, code, nil)
}

// writeError 写一个 error 信封
func writeError(w http.ResponseWriter, httpStatus int, message, code string) {
	writeEnvelope(w, httpStatus, "error", message, code, nil)
}

func writeEnvelope(w http.ResponseWriter, httpStatus int, status, message, code string, data any) {
	env := map[string]any{"status": status}
	if message != "" {
		env["message"] = message
	}
	if code != "" {
		env["code"] = code
	}
	if data != nil {
		env["data"] = data
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(env)
}

// rawJSON 测试断言用，结构序列化成 RawMessage
func rawJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("序列化测试数据失败: %v", err)
	}
	return raw
}

// testApp 一套完整接线的服务，指向假后端
type testApp struct {
	store     *storage.Store
	client    *api.Client
	emitter   *Emitter
	session   *SessionService
	auth      *AuthService
	watchlist *WatchlistService
	groups    *GroupService
	assistant *AssistantService
	research  *ResearchService
	backtest  *BacktestService
	market    *MarketService
	settings  *SettingsService
}

func newTestApp(t *testing.T, backend *fakeBackend) *testApp {
	t.Helper()
	store, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("创建测试存储失败: %v", err)
	}

	emitter := NewEmitter()
	session := NewSessionService(store, emitter)
	client := api.NewClient(backend.server.URL+"/", session)
	watchlist := NewWatchlistService(client, emitter)

	return &testApp{
		store:     store,
		client:    client,
		emitter:   emitter,
		session:   session,
		auth:      NewAuthService(client, session, emitter),
		watchlist: watchlist,
		groups:    NewGroupService(client, session, store, watchlist, emitter),
		assistant: NewAssistantService(client, session, emitter),
		research:  NewResearchService(client, session, watchlist, emitter),
		backtest:  NewBacktestService(client, store, emitter),
		market:    NewMarketService(client, watchlist, emitter),
		settings:  NewSettingsService(client, emitter),
	}
}

// waitFor 轮询等待异步条件成立
func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("等待超时: %s", desc)
}
