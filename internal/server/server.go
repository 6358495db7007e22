// Package server は、シナリオカードを閲覧・再生成するための小さな HTTP 面を提供します。
// ビューはプロセス内のメモリにだけ置かれ、再起動で消えます。
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	libcfg "github.com/shouni/go-scenario-kit/pkg/config"
	"github.com/shouni/go-scenario-kit/pkg/domain"
	"github.com/shouni/go-scenario-kit/pkg/generator"
)

// Backend はサーバーが使うワーカー呼び出しの契約なのだ。*client.Client が満たすのだ。
type Backend interface {
	generator.ImageRequester
	RequestNarrative(ctx context.Context, req domain.NarrativeRequest) (*domain.NarrativeResult, error)
	RequestIdeas(ctx context.Context, req domain.IdeaRequest) ([]domain.IdeaCard, error)
}

// Server は gin のルーターとビューのストアをまとめたものです。
type Server struct {
	backend Backend
	store   *ViewStore
	router  *gin.Engine
	// baseCtx は画像取得タスクの親なのだ。リクエストの context より長生きする必要があるのだ。
	baseCtx context.Context
}

// New は Server を初期化するのだ。ctx が終わると全ビューの画像取得も止まるのだ。
func New(ctx context.Context, backend Backend, cfg libcfg.Config) *Server {
	cfg = cfg.WithDefaults()
	s := &Server{
		backend: backend,
		baseCtx: ctx,
	}
	s.store = NewViewStore(cfg.ViewTTL, libcfg.DefaultViewCleanup, func() *generator.SegmentScheduler {
		return generator.NewSegmentScheduler(backend, cfg)
	})
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), AccessLog(), gin.Recovery())

	r.GET("/healthz", s.health)

	api := r.Group("/api")
	{
		api.POST("/scenarios", s.createScenario)
		api.GET("/scenarios/:id", s.getScenario)
		api.PUT("/scenarios/:id", s.resubmitScenario)
		api.DELETE("/scenarios/:id", s.deleteScenario)
		api.POST("/ideas", s.createIdeas)
	}
	return r
}

// Handler は http.Handler として返すのだ（テストや別サーバーへの組み込み用）。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Store はビューのストアを返すのだ。
func (s *Server) Store() *ViewStore {
	return s.store
}

// Run は addr で待ち受け、ctx が終わったらグレースフルに停止するのだ。
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("サーバーを起動したのだ", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.store.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("サーバーが停止したのだ: %w", err)
	case <-ctx.Done():
	}

	slog.Info("サーバーを停止するのだ...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.store.Close()
	if err != nil {
		return fmt.Errorf("サーバーの停止に失敗したのだ: %w", err)
	}
	return nil
}
