package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shouni/go-scenario-kit/pkg/domain"
)

// SegmentView はカット 1 枚分の表示用の状態なのだ。
type SegmentView struct {
	Position int                   `json:"position"`
	Status   domain.DisplaySignal  `json:"status"`
	Attempt  string                `json:"attempt"`
	Image    domain.ImageReference `json:"image,omitempty"`
}

// ScenarioResponse はビューの応答なのだ。
type ScenarioResponse struct {
	ID         string                  `json:"id"`
	Generation uint64                  `json:"generation"`
	Scenario   *domain.NarrativeResult `json:"scenario"`
	ChildRoles []string                `json:"childRoles"`
	Segments   []SegmentView           `json:"segments"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"upstreamStatus,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "views": s.store.Count()})
}

func (s *Server) createScenario(c *gin.Context) {
	result, ok := s.requestNarrative(c)
	if !ok {
		return
	}
	v, err := s.store.Create(s.baseCtx, result)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.render(v))
}

// getScenario はビューの現在の状態を返すのだ。ポーリングされている間は有効期限を延ばすのだ。
func (s *Server) getScenario(c *gin.Context) {
	v, ok := s.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "scenario not found"})
		return
	}
	s.store.Touch(v)
	c.JSON(http.StatusOK, s.render(v))
}

// resubmitScenario はシナリオをまるごと作り直すのだ。失敗した場合、今のビューはそのまま残るのだ。
func (s *Server) resubmitScenario(c *gin.Context) {
	v, ok := s.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "scenario not found"})
		return
	}
	result, ok := s.requestNarrative(c)
	if !ok {
		return
	}
	if err := v.Replace(s.baseCtx, result); err != nil {
		s.fail(c, err)
		return
	}
	s.store.Touch(v)
	c.JSON(http.StatusOK, s.render(v))
}

func (s *Server) deleteScenario(c *gin.Context) {
	if !s.store.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "scenario not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) createIdeas(c *gin.Context) {
	var req domain.IdeaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		s.fail(c, err)
		return
	}
	cards, err := s.backend.RequestIdeas(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ideas": cards})
}

// requestNarrative は本文をバインドしてシナリオを要求するのだ。失敗時は応答を書いて false を返すのだ。
func (s *Server) requestNarrative(c *gin.Context) (*domain.NarrativeResult, bool) {
	var req domain.NarrativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return nil, false
	}
	if err := req.Validate(); err != nil {
		s.fail(c, err)
		return nil, false
	}
	result, err := s.backend.RequestNarrative(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	return result, true
}

func (s *Server) render(v *View) ScenarioResponse {
	scenario, states, gen := v.Snapshot()
	resp := ScenarioResponse{
		ID:         v.ID,
		Generation: gen,
		Scenario:   scenario,
		ChildRoles: scenario.DisplayChildRoles(),
		Segments:   make([]SegmentView, 0, domain.SegmentCount),
	}
	for i, st := range states {
		resp.Segments = append(resp.Segments, SegmentView{
			Position: i + 1,
			Status:   st.Display(),
			Attempt:  st.Attempt.String(),
			Image:    st.Image,
		})
	}
	return resp
}

// fail はエラーの分類に応じてステータスを選ぶのだ。
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var be *domain.BackendError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.As(err, &be):
		c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error(), Status: be.Status})
	case errors.Is(err, domain.ErrMalformedResponse):
		c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
