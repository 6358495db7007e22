package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	libcfg "github.com/shouni/go-scenario-kit/pkg/config"
	"github.com/shouni/go-scenario-kit/pkg/domain"
	"github.com/shouni/go-scenario-kit/pkg/generator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeBackend はワーカーの代わりなのだ。呼ばれるたびに ideaName の違うシナリオを返すのだ。
type fakeBackend struct {
	narrativeErr error
	calls        atomic.Int32
	block        chan struct{}
}

func (f *fakeBackend) RequestNarrative(_ context.Context, req domain.NarrativeRequest) (*domain.NarrativeResult, error) {
	if f.narrativeErr != nil {
		return nil, f.narrativeErr
	}
	f.calls.Add(1)
	res := &domain.NarrativeResult{
		Role:         domain.RoleAgent,
		IdeaName:     req.IdeaName,
		IdeaOverview: req.IdeaOverview,
		ChildRoles:   []string{"Monitoring Agent", "Planning Agent"},
	}
	for i := range res.Segments {
		res.Segments[i] = domain.Segment{Title: "scene", Description: "d", Features: []string{"f"}}
	}
	return res, nil
}

func (f *fakeBackend) RequestSegmentImage(ctx context.Context, _ domain.Segment, _ bool) (domain.ImageReference, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "data:image/png;base64,AAAA", nil
}

func (f *fakeBackend) RequestIdeas(_ context.Context, _ domain.IdeaRequest) ([]domain.IdeaCard, error) {
	return []domain.IdeaCard{{SolutionTitle: "日報自動化", Category: domain.RoleAssistant}}, nil
}

func testServer(t *testing.T, backend Backend) *Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := New(ctx, backend, libcfg.Config{StaggerDelay: time.Millisecond, FallbackCooldown: time.Millisecond})
	t.Cleanup(s.Store().Close)
	return s
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

type scenarioView struct {
	ID         string `json:"id"`
	Generation uint64 `json:"generation"`
	Scenario   struct {
		Type     string `json:"type"`
		IdeaName string `json:"ideaName"`
	} `json:"scenario"`
	ChildRoles []string `json:"childRoles"`
	Segments   []struct {
		Position int    `json:"position"`
		Status   string `json:"status"`
		Image    string `json:"image"`
	} `json:"segments"`
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) scenarioView {
	t.Helper()
	var v scenarioView
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("応答のデコードに失敗したのだ: %v (%s)", err, w.Body.String())
	}
	return v
}

func TestScenarioLifecycle(t *testing.T) {
	s := testServer(t, &fakeBackend{})

	w := do(t, s, http.MethodPost, "/api/scenarios", map[string]string{"ideaName": "X", "ideaOverview": "Y"})
	if w.Code != http.StatusCreated {
		t.Fatalf("201 を期待したのだ: %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("リクエスト ID が付いていないのだ")
	}
	created := decodeView(t, w)
	if created.ID == "" || created.Scenario.IdeaName != "X" || len(created.Segments) != domain.SegmentCount {
		t.Fatalf("ビューが違うのだ: %+v", created)
	}
	if created.ChildRoles[0] != "Monitoring" {
		t.Errorf("子ロールの表示名が違うのだ: %v", created.ChildRoles)
	}

	// 全カットが loaded になるまで待つのだ
	deadline := time.Now().Add(3 * time.Second)
	for {
		got := decodeView(t, do(t, s, http.MethodGet, "/api/scenarios/"+created.ID, nil))
		loaded := 0
		for _, seg := range got.Segments {
			if seg.Status == string(domain.DisplayImage) && seg.Image != "" {
				loaded++
			}
		}
		if loaded == domain.SegmentCount {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("カットが揃わないのだ: %+v", got.Segments)
		}
		time.Sleep(5 * time.Millisecond)
	}

	w = do(t, s, http.MethodPut, "/api/scenarios/"+created.ID, map[string]string{"ideaName": "Z", "ideaOverview": "W"})
	if w.Code != http.StatusOK {
		t.Fatalf("200 を期待したのだ: %d %s", w.Code, w.Body.String())
	}
	replaced := decodeView(t, w)
	if replaced.Scenario.IdeaName != "Z" || replaced.Generation <= created.Generation {
		t.Errorf("差し替えられていないのだ: %+v", replaced)
	}

	if w := do(t, s, http.MethodDelete, "/api/scenarios/"+created.ID, nil); w.Code != http.StatusNoContent {
		t.Errorf("204 を期待したのだ: %d", w.Code)
	}
	if w := do(t, s, http.MethodGet, "/api/scenarios/"+created.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("削除後は 404 のはずなのだ: %d", w.Code)
	}
	if w := do(t, s, http.MethodDelete, "/api/scenarios/"+created.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("二重削除は 404 のはずなのだ: %d", w.Code)
	}
}

func TestScenarioErrors(t *testing.T) {
	t.Run("不正な入力は400なのだ", func(t *testing.T) {
		backend := &fakeBackend{}
		s := testServer(t, backend)
		if w := do(t, s, http.MethodPost, "/api/scenarios", map[string]string{"ideaName": "X"}); w.Code != http.StatusBadRequest {
			t.Errorf("400 を期待したのだ: %d", w.Code)
		}
		if backend.calls.Load() != 0 {
			t.Error("バックエンドが呼ばれてしまったのだ")
		}
	})

	t.Run("バックエンドの失敗は502なのだ", func(t *testing.T) {
		s := testServer(t, &fakeBackend{narrativeErr: &domain.BackendError{Endpoint: "/scenario", Status: 503}})
		w := do(t, s, http.MethodPost, "/api/scenarios", map[string]string{"ideaName": "X", "ideaOverview": "Y"})
		if w.Code != http.StatusBadGateway {
			t.Fatalf("502 を期待したのだ: %d", w.Code)
		}
		var body errorResponse
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body.Status != 503 {
			t.Errorf("上流のステータスが含まれていないのだ: %+v", body)
		}
	})

	t.Run("構造違反も502なのだ", func(t *testing.T) {
		s := testServer(t, &fakeBackend{narrativeErr: domain.ErrMalformedResponse})
		if w := do(t, s, http.MethodPost, "/api/scenarios", map[string]string{"ideaName": "X", "ideaOverview": "Y"}); w.Code != http.StatusBadGateway {
			t.Errorf("502 を期待したのだ: %d", w.Code)
		}
	})

	t.Run("存在しないビューは404なのだ", func(t *testing.T) {
		s := testServer(t, &fakeBackend{})
		if w := do(t, s, http.MethodPut, "/api/scenarios/nope", map[string]string{"ideaName": "X", "ideaOverview": "Y"}); w.Code != http.StatusNotFound {
			t.Errorf("404 を期待したのだ: %d", w.Code)
		}
	})
}

func TestIdeasAndHealth(t *testing.T) {
	s := testServer(t, &fakeBackend{})

	w := do(t, s, http.MethodPost, "/api/ideas", map[string]string{"businessArea": "a", "painPoints": "b", "expectations": "c"})
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("日報自動化")) {
		t.Errorf("アイデアカードが返らないのだ: %d %s", w.Code, w.Body.String())
	}
	if w := do(t, s, http.MethodPost, "/api/ideas", map[string]string{"businessArea": "a"}); w.Code != http.StatusBadRequest {
		t.Errorf("400 を期待したのだ: %d", w.Code)
	}
	if w := do(t, s, http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Errorf("200 を期待したのだ: %d", w.Code)
	}
}

func TestViewStore_Eviction(t *testing.T) {
	backend := &fakeBackend{block: make(chan struct{})}
	defer close(backend.block)
	store := NewViewStore(20*time.Millisecond, 5*time.Millisecond, func() *generator.SegmentScheduler {
		return generator.NewSegmentScheduler(backend, libcfg.Config{StaggerDelay: time.Millisecond, FallbackCooldown: time.Millisecond})
	})
	defer store.Close()

	result, _ := backend.RequestNarrative(context.Background(), domain.NarrativeRequest{IdeaName: "X", IdeaOverview: "Y"})
	v, err := store.Create(context.Background(), result)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	v.mu.RLock()
	batch := v.batch
	v.mu.RUnlock()

	select {
	case <-batch.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("期限切れのビューの画像取得が止まらないのだ")
	}
	if !batch.Invalidated() {
		t.Error("期限切れでバッチが無効化されていないのだ")
	}
	for i, st := range batch.States() {
		if st != (domain.SegmentImageState{}) {
			t.Errorf("カット %d の状態が変わっているのだ: %s", i+1, st)
		}
	}
	if _, ok := store.Get(v.ID); ok {
		t.Error("期限切れのビューが残っているのだ")
	}
}

func TestGetScenario_ExtendsTTL(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	const ttl = 200 * time.Millisecond
	s := New(ctx, &fakeBackend{}, libcfg.Config{StaggerDelay: time.Millisecond, FallbackCooldown: time.Millisecond, ViewTTL: ttl})
	defer s.Store().Close()

	w := do(t, s, http.MethodPost, "/api/scenarios", map[string]string{"ideaName": "X", "ideaOverview": "Y"})
	if w.Code != http.StatusCreated {
		t.Fatalf("作成に失敗したのだ: %d %s", w.Code, w.Body.String())
	}
	id := decodeView(t, w).ID

	// TTL を超える時間ポーリングし続けても、見ている間は消えないのだ
	for elapsed := time.Duration(0); elapsed < 3*ttl; elapsed += ttl / 4 {
		time.Sleep(ttl / 4)
		if w := do(t, s, http.MethodGet, "/api/scenarios/"+id, nil); w.Code != http.StatusOK {
			t.Fatalf("ポーリング中のビューが期限切れになったのだ (elapsed=%v): %d", elapsed, w.Code)
		}
	}

	time.Sleep(2 * ttl)
	if w := do(t, s, http.MethodGet, "/api/scenarios/"+id, nil); w.Code != http.StatusNotFound {
		t.Errorf("放置したビューは期限切れになるはずなのだ: %d", w.Code)
	}
}
