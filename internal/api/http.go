package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/victornm/satsquest/internal/chat"
	"github.com/victornm/satsquest/internal/errors"
	"github.com/victornm/satsquest/internal/quiz"
)

type (
	AskOracleRequest struct {
		Question        string `json:"question"`
		PlayerID        string `json:"playerId"`
		FrontendBalance int64  `json:"frontendBalance"`
	}

	AskOracleResponse struct {
		Answer     string `json:"answer"`
		NewBalance int64  `json:"newBalance"`
	}
)

func (a *API) Hello(c *gin.Context) {
	c.String(http.StatusOK, "Hello from the API server!")
}

// GetQuiz serves GET /api/quiz?topic=<string>&count=<int>.
func (a *API) GetQuiz(c *gin.Context) {
	count, err := queryInt(c, "count", a.quizCount)
	if err != nil {
		writeError(c, err)
		return
	}

	z, err := a.qs.GetQuiz(c.Request.Context(), quiz.GetQuizRequest{
		Topic: c.Query("topic"),
		Count: count,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, z)
}

// GenerateQuiz serves GET /api/quiz/generate?topic=<string>&numQuestions=<int>. It waits for the oracle.
func (a *API) GenerateQuiz(c *gin.Context) {
	count, err := queryInt(c, "numQuestions", quiz.DefaultGenerateCount)
	if err != nil {
		writeError(c, err)
		return
	}

	z, err := a.qs.GenerateQuiz(c.Request.Context(), quiz.GenerateQuizRequest{
		Topic: c.Query("topic"),
		Count: count,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, z)
}

// queryInt reads an integer query parameter, def is used when it is missing or empty.
func queryInt(c *gin.Context, name string, def int) (int, error) {
	s := c.Query(name)
	if s == "" {
		return def, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.InvalidArgument("invalid '%s': %q is not a number", name, s)
	}

	return n, nil
}

// AskOracle serves POST /api/ask-oracle.
func (a *API) AskOracle(c *gin.Context) {
	var req AskOracleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid request body"),
			errors.WithCause(err),
		))
		return
	}

	resp, err := a.cs.Ask(c.Request.Context(), chat.AskRequest{
		PlayerID:        req.PlayerID,
		Question:        req.Question,
		FrontendBalance: req.FrontendBalance,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, AskOracleResponse{
		Answer:     resp.Answer,
		NewBalance: resp.NewBalance,
	})
}

// writeError responds with {"error": message} plus the error details.
func writeError(c *gin.Context, err error) {
	e := errors.Convert(err)

	status := e.HTTPStatusCode()
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "api: request failed",
			"path", c.FullPath(),
			"error", err,
		)
	}

	body := gin.H{"error": e.Message}
	for k, v := range e.Details {
		body[k] = v
	}

	c.AbortWithStatusJSON(status, body)
}
