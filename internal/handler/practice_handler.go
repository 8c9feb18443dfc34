package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fluentpath/detprep-backend/internal/exercise"
	"github.com/fluentpath/detprep-backend/internal/middleware"
	"github.com/fluentpath/detprep-backend/internal/model"
	"github.com/fluentpath/detprep-backend/internal/response"
	"github.com/fluentpath/detprep-backend/internal/service"
	"github.com/fluentpath/detprep-backend/internal/session"
	"github.com/fluentpath/detprep-backend/internal/validator"
)

// PracticeHandler handles live practice session endpoints.
type PracticeHandler struct {
	practiceService *service.PracticeService
	promptService   *service.PromptService
}

// NewPracticeHandler creates a new PracticeHandler.
func NewPracticeHandler(practiceService *service.PracticeService, promptService *service.PromptService) *PracticeHandler {
	return &PracticeHandler{
		practiceService: practiceService,
		promptService:   promptService,
	}
}

// GetPrompt godoc
// GET /api/v1/practice/prompts/:kind
// Returns the active prompt for an exercise kind, with grading data stripped.
func (h *PracticeHandler) GetPrompt(c *gin.Context) {
	kind := model.ExerciseKind(c.Param("kind"))
	if !kind.Valid() {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	prompt, err := h.promptService.GetActive(c.Request.Context(), kind)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoPromptAvailable)
		return
	}

	clientPrompt, err := service.ForClient(prompt)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"prompt": clientPrompt})
}

// CreatePrompt godoc
// POST /api/v1/practice/prompts
// Adds a task-bank entry and makes it the active prompt for its kind.
func (h *PracticeHandler) CreatePrompt(c *gin.Context) {
	var req model.CreatePromptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	prompt, err := h.promptService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidPayload)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"prompt": prompt})
}

// ListPrompts godoc
// GET /api/v1/practice/prompts/:kind/all?page=&per_page=
// Returns a page of the task bank for a kind, newest first. Unlike the play
// endpoint this includes grading data, so bank entries can be reviewed.
func (h *PracticeHandler) ListPrompts(c *gin.Context) {
	kind := model.ExerciseKind(c.Param("kind"))
	if !kind.Valid() {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, perPage := pageParams(c)

	prompts, err := h.promptService.ListBank(c.Request.Context(), kind)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	total := len(prompts)
	lo := (page - 1) * perPage
	if lo > total {
		lo = total
	}
	hi := lo + perPage
	if hi > total {
		hi = total
	}

	response.SuccessWithPagination(c, http.StatusOK,
		gin.H{"prompts": prompts[lo:hi]},
		response.NewPagination(page, perPage, total))
}

// pageParams reads page/per_page query parameters, clamped to sane bounds.
func pageParams(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}

// RetirePrompt godoc
// DELETE /api/v1/practice/prompts/:prompt_id
// Deactivates a task-bank entry without deleting it.
func (h *PracticeHandler) RetirePrompt(c *gin.Context) {
	promptID, err := uuid.Parse(c.Param("prompt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.promptService.Retire(c.Request.Context(), promptID); err != nil {
		if errors.Is(err, service.ErrNoPrompt) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// StartSession godoc
// POST /api/v1/practice/sessions
// Opens a practice session for the requested exercise kind.
func (h *PracticeHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.practiceService.StartSession(c.Request.Context(), claims.UserID, req.Kind)
	if err != nil {
		if errors.Is(err, service.ErrNoPrompt) {
			response.Fail(c, http.StatusNotFound, response.ErrNoPromptAvailable)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, resp)
}

// GetSession godoc
// GET /api/v1/practice/sessions/:session_id
// Returns the session's current snapshot, including the live countdown.
func (h *PracticeHandler) GetSession(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	snap, err := h.practiceService.GetState(c.Request.Context(), claims.UserID, sessionID)
	if err != nil {
		h.failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": snap})
}

// ApplyEvent godoc
// POST /api/v1/practice/sessions/:session_id/events
// Feeds one answer event (judgment, gap fill, recording, text) into the session.
func (h *PracticeHandler) ApplyEvent(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req model.AnswerEventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snap, err := h.practiceService.ApplyEvent(c.Request.Context(), claims.UserID, sessionID, &req)
	if err != nil {
		h.failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": snap})
}

// SubmitSession godoc
// POST /api/v1/practice/sessions/:session_id/submit
// Finalizes the session and returns its scored result. Submitting an
// already-finished session returns the stored result unchanged.
func (h *PracticeHandler) SubmitSession(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	result, err := h.practiceService.Submit(c.Request.Context(), claims.UserID, sessionID)
	if err != nil {
		h.failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"result": result,
		"level":  model.LevelForScore(result.Score.Overall),
	})
}

// CancelSession godoc
// DELETE /api/v1/practice/sessions/:session_id
// Abandons a session without scoring it.
func (h *PracticeHandler) CancelSession(c *gin.Context) {
	claims, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	if err := h.practiceService.Cancel(c.Request.Context(), claims.UserID, sessionID); err != nil {
		h.failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetDraft godoc
// GET /api/v1/practice/draft
// Returns the learner's autosaved essay text, if any.
func (h *PracticeHandler) GetDraft(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	text := h.practiceService.LoadDraft(c.Request.Context(), claims.UserID)
	response.Success(c, http.StatusOK, gin.H{"text": text})
}

func (h *PracticeHandler) sessionParams(c *gin.Context) (*service.Claims, uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, uuid.Nil, false
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, uuid.Nil, false
	}
	return claims, sessionID, true
}

// failSessionError maps session and exercise errors to API error codes.
func (h *PracticeHandler) failSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotSessionOwner):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, session.ErrNotActive), errors.Is(err, session.ErrTornDown):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotActive)
	case errors.Is(err, exercise.ErrTooFewWords):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrTooFewWords)
	case errors.Is(err, exercise.ErrAlreadyRecording), errors.Is(err, exercise.ErrNotRecording):
		response.Fail(c, http.StatusConflict, response.ErrRecordingState)
	case errors.Is(err, exercise.ErrWrongEvent),
		errors.Is(err, exercise.ErrUnknownGap),
		errors.Is(err, exercise.ErrAllWordsJudged):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrWrongEvent)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
