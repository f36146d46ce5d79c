package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"claims-orchestrator/internal/domain"
	"claims-orchestrator/internal/usecase"
)

// Handler exposes the retrieval pipeline over HTTP.
type Handler struct {
	answerUsecase   usecase.AnswerQueryUsecase
	retrieveUsecase usecase.RetrieveRankedUsecase
}

func NewHandler(
	answerUsecase usecase.AnswerQueryUsecase,
	retrieveUsecase usecase.RetrieveRankedUsecase,
) *Handler {
	return &Handler{
		answerUsecase:   answerUsecase,
		retrieveUsecase: retrieveUsecase,
	}
}

// RegisterRoutes mounts the API on the echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/claims/answer", h.AnswerQuery)
	e.POST("/v1/claims/retrieve", h.RetrieveRanked)
}

// AnswerRequest is the body of POST /v1/claims/answer.
type AnswerRequest struct {
	Query   string               `json:"query"`
	History []domain.ChatMessage `json:"history,omitempty"`
}

// CandidateView is one retrieved item as returned to API clients.
type CandidateView struct {
	ID        string            `json:"id"`
	Source    string            `json:"source"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	ClaimDate string            `json:"claim_date,omitempty"`
	Score     float32           `json:"score"`
}

// RetrievalView summarizes the accepted result set.
type RetrievalView struct {
	RetrievalID string          `json:"retrieval_id"`
	Verdict     string          `json:"verdict"`
	Outcome     string          `json:"outcome"`
	Actions     []string        `json:"actions,omitempty"`
	Candidates  []CandidateView `json:"candidates"`
}

// AnswerResponse is the body returned by POST /v1/claims/answer.
type AnswerResponse struct {
	Answer        string        `json:"answer,omitempty"`
	LowConfidence bool          `json:"low_confidence"`
	Fallback      bool          `json:"fallback"`
	Reason        string        `json:"reason,omitempty"`
	Retrieval     RetrievalView `json:"retrieval"`
	PromptVersion string        `json:"prompt_version,omitempty"`
}

// AnswerQuery answers a query grounded on retrieved claims and policies.
// (POST /v1/claims/answer)
func (h *Handler) AnswerQuery(ctx echo.Context) error {
	var req AnswerRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.Query == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}

	output, err := h.answerUsecase.Execute(ctx.Request().Context(), usecase.AnswerQueryInput{
		Query:   req.Query,
		History: req.History,
	})
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(http.StatusOK, AnswerResponse{
		Answer:        output.Answer,
		LowConfidence: output.LowConfidence,
		Fallback:      output.Fallback,
		Reason:        output.Reason,
		Retrieval:     retrievalView(output.Result),
		PromptVersion: output.Debug.PromptVersion,
	})
}

// RetrieveRequest is the body of POST /v1/claims/retrieve.
type RetrieveRequest struct {
	Query string `json:"query"`
}

// RetrieveResponse is the body returned by POST /v1/claims/retrieve.
type RetrieveResponse struct {
	Category  string        `json:"category"`
	Retrieval RetrievalView `json:"retrieval"`
}

// RetrieveRanked runs retrieval only, without generation.
// (POST /v1/claims/retrieve)
func (h *Handler) RetrieveRanked(ctx echo.Context) error {
	var req RetrieveRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.Query == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}

	output, err := h.retrieveUsecase.Execute(ctx.Request().Context(), usecase.RetrieveRankedInput{
		Query: req.Query,
	})
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(http.StatusOK, RetrieveResponse{
		Category:  string(output.Intent.Category),
		Retrieval: retrievalView(output.Result),
	})
}

func retrievalView(rs *domain.ResultSet) RetrievalView {
	view := RetrievalView{
		RetrievalID: rs.RetrievalID,
		Verdict:     string(rs.Verdict),
		Outcome:     string(rs.Outcome),
		Candidates:  make([]CandidateView, 0, len(rs.Candidates)),
	}
	for _, action := range rs.Actions {
		view.Actions = append(view.Actions, string(action))
	}
	for _, c := range rs.Candidates {
		cv := CandidateView{
			ID:       c.ID,
			Source:   string(c.Source),
			Content:  c.Content,
			Metadata: c.Metadata,
			Score:    c.Composite,
		}
		if !c.ClaimDate.IsZero() {
			cv.ClaimDate = c.ClaimDate.Format("2006-01-02")
		}
		view.Candidates = append(view.Candidates, cv)
	}
	return view
}
