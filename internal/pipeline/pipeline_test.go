package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shouni/go-scenario-kit/internal/config"
	"github.com/shouni/go-scenario-kit/pkg/domain"
)

const workerScenario = `{
	"type": "Assistant",
	"ideaName": "議事録アシスタント",
	"ideaOverview": "会議の要点をまとめる",
	"childAgents": ["Summary Agent", "Task Agent"],
	"cut1": {"sceneName": "録音", "description": "会議を記録する", "features": ["録音"]},
	"cut2": {"sceneName": "要約", "description": "要点をまとめる", "features": ["要約"]},
	"cut3": {"sceneName": "共有", "description": "参加者に共有する", "features": ["共有"]},
	"cut4": {"sceneName": "追跡", "description": "タスクを追跡する", "features": ["追跡"]}
}`

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func newWorker(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/scenario", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "```json\n"+workerScenario+"\n```")
	})
	mux.HandleFunc("/scenario-image", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Cut        domain.Segment `json:"cut"`
			IsFallback bool           `json:"isFallback"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		// 「共有」だけは両方とも失敗させるのだ
		if body.Cut.Title == "共有" {
			http.Error(w, "quota", http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"imageDataUrl": "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
		})
	})
	mux.HandleFunc("/idea", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"solutionTitle": "議事録の自動要約", "category": "Assistant"}]`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(workerURL, outDir string) *config.Config {
	return &config.Config{
		WorkerBaseURL:    workerURL,
		HTTPTimeout:      5 * time.Second,
		StaggerDelay:     time.Millisecond,
		FallbackCooldown: time.Millisecond,
		OutputDir:        outDir,
	}
}

func TestExecuteScenario(t *testing.T) {
	srv := newWorker(t)
	dir := t.TempDir()
	cfg := testConfig(srv.URL, dir)
	cfg.Options = config.GenerateOptions{IdeaName: "議事録", IdeaOverview: "会議の記録を楽にしたい"}

	res, err := ExecuteScenario(context.Background(), cfg)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if filepath.Base(res.MarkdownPath) != "Assistant_scenario.md" {
		t.Errorf("Markdown のファイル名が違うのだ: %s", res.MarkdownPath)
	}
	for i, p := range res.ImagePaths {
		if i == 2 {
			if p != "" {
				t.Errorf("失敗したカットに画像があるのだ: %s", p)
			}
			continue
		}
		if _, err := os.Stat(p); err != nil {
			t.Errorf("カット %d の画像が無いのだ: %v", i+1, err)
		}
	}
	md, err := os.ReadFile(res.MarkdownPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(md), "image unavailable") {
		t.Error("失敗したカットのプレースホルダーが無いのだ")
	}

	// 書き出した scenario.json から画像だけ取り直せるのだ
	cfg.Options = config.GenerateOptions{ScriptFile: res.JSONPath, OutputDir: filepath.Join(dir, "again")}
	again, err := ExecuteImageOnly(context.Background(), cfg)
	if err != nil {
		t.Fatalf("再取得に失敗したのだ: %v", err)
	}
	if _, err := os.Stat(again.JSONPath); err != nil {
		t.Errorf("再書き出しされていないのだ: %v", err)
	}
}

func TestExecuteScenario_InvalidInput(t *testing.T) {
	srv := newWorker(t)
	cfg := testConfig(srv.URL, t.TempDir())
	cfg.Options = config.GenerateOptions{IdeaName: "X"}
	if _, err := ExecuteScenario(context.Background(), cfg); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("ErrInvalidRequest を期待したのだ: %v", err)
	}
}

func TestExecuteIdea(t *testing.T) {
	srv := newWorker(t)
	dir := t.TempDir()
	cfg := testConfig(srv.URL, dir)
	cfg.Options = config.GenerateOptions{BusinessArea: "総務", PainPoints: "議事録が大変", Expectations: "時短"}

	res, err := ExecuteIdea(context.Background(), cfg)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	data, err := os.ReadFile(res.JSONPath)
	if err != nil || !strings.Contains(string(data), "議事録の自動要約") {
		t.Errorf("ideas.json が違うのだ: %s, %v", data, err)
	}
}
