package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"receptionist-platform/internal/assistant"
	"receptionist-platform/internal/auth"
	"receptionist-platform/internal/calllog"
	"receptionist-platform/internal/callsession"
	"receptionist-platform/internal/chat"
	"receptionist-platform/internal/demo"
	"receptionist-platform/internal/wizard"
	"receptionist-platform/pkg/logger"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth       *auth.Service
	Assistants *assistant.Service
	CallLogs   *calllog.Service
	Chat       *chat.Service
	Wizard     *wizard.Service
	Calls      *callsession.Manager
	Demo       *demo.Service
}

// Health reports process liveness.
func (h Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Server is running"})
}

// --- Auth ---

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func tokenResponse(pair auth.TokenPair) gin.H {
	return gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.ExpiresAt,
	}
}

func userResponse(u auth.User) gin.H {
	return gin.H{"id": u.ID, "email": u.Email, "created_at": u.CreatedAt}
}

func (h Handlers) SignUp(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u, pair, err := h.Auth.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": userResponse(u), "tokens": tokenResponse(pair)})
}

func (h Handlers) SignIn(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u, pair, err := h.Auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userResponse(u), "tokens": tokenResponse(pair)})
}

func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	pair, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse(pair))
}

func (h Handlers) SignOut(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	if err := h.Auth.SignOut(c.Request.Context(), req.RefreshToken); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) Me(c *gin.Context) {
	u, err := h.Auth.CurrentUser(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse(u))
}

// --- Assistant ---

type assistantUpdateRequest struct {
	Name         string  `json:"name"`
	FirstMessage string  `json:"first_message"`
	SystemPrompt string  `json:"system_prompt"`
	Language     string  `json:"language"`
	VoiceID      string  `json:"voice_id"`
	Temperature  float64 `json:"temperature"`
}

func (h Handlers) GetAssistant(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	a, err := h.Assistants.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h Handlers) UpdateAssistant(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req assistantUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	a, err := h.Assistants.Update(c.Request.Context(), userID, c.Param("id"), assistant.UpdateParams{
		Name:         req.Name,
		FirstMessage: req.FirstMessage,
		SystemPrompt: req.SystemPrompt,
		Language:     req.Language,
		VoiceID:      req.VoiceID,
		Temperature:  req.Temperature,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h Handlers) DeleteAssistant(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.Assistants.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Call logs ---

// ListCallLogs returns history for the user's assistant. A user without an
// assistant has no history yet, not an error.
func (h Handlers) ListCallLogs(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	a, err := h.Assistants.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, assistant.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"call_logs": []calllog.CallLog{}})
			return
		}
		respondError(c, err)
		return
	}
	logs, err := h.CallLogs.List(c.Request.Context(), a.PlatformID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call_logs": logs})
}

func (h Handlers) SummarizeCallLogs(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	a, err := h.Assistants.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, assistant.ErrNotFound) {
			c.JSON(http.StatusOK, calllog.Summary{})
			return
		}
		respondError(c, err)
		return
	}
	sum, err := h.CallLogs.Summarize(c.Request.Context(), a.PlatformID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// --- Chat ---

type chatSessionRequest struct {
	Title string `json:"title"`
}

type chatMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (h Handlers) CreateChatSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req chatSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	sess, err := h.Chat.CreateSession(c.Request.Context(), userID, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (h Handlers) ListChatSessions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessions, err := h.Chat.ListSessions(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h Handlers) GetChatSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sess, err := h.Chat.GetSession(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h Handlers) DeleteChatSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.Chat.DeleteSession(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) AppendChatMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req chatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	msg, err := h.Chat.AppendMessage(c.Request.Context(), userID, c.Param("id"), chat.Role(req.Role), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h Handlers) ListChatMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	msgs, err := h.Chat.ListMessages(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// --- Wizard ---

func (h Handlers) StartWizard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	st, err := h.Wizard.Start(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (h Handlers) GetWizard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	st, err := h.Wizard.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h Handlers) UpdateWizard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req wizard.Updates
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	st, err := h.Wizard.Update(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h Handlers) WizardNext(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	st, err := h.Wizard.Next(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h Handlers) WizardBack(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	st, err := h.Wizard.Back(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// --- Calls ---

type startCallRequest struct {
	AssistantID string `json:"assistant_id"`
}

type muteRequest struct {
	Muted bool `json:"muted"`
}

func (h Handlers) StartCall(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req startCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	sess, err := h.Calls.StartCall(c.Request.Context(), callsession.StartParams{
		UserID:      userID,
		AssistantID: req.AssistantID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess.Snapshot())
}

func (h Handlers) GetCall(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sess, err := h.Calls.Get(userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (h Handlers) EndCall(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	if err := h.Calls.EndCall(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	sess, err := h.Calls.Get(userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (h Handlers) MuteCall(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req muteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Calls.SetMuted(c.Request.Context(), userID, c.Param("id"), req.Muted); err != nil {
		respondError(c, err)
		return
	}
	sess, err := h.Calls.Get(userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

// --- Demo ---

func (h Handlers) CreateDemoRequest(c *gin.Context) {
	var in demo.Intake
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req, err := h.Demo.Submit(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// --- Helpers ---

func currentUserID(c *gin.Context) (string, bool) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil || userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return "", false
	}
	return userID, true
}

// respondError maps service errors to HTTP statuses. Unknown errors are
// logged and returned as opaque 500s.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrSessionRevoked),
		errors.Is(err, auth.ErrUnauthenticated):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, callsession.ErrCallInProgress),
		errors.Is(err, callsession.ErrNotInCall),
		errors.Is(err, wizard.ErrBackDisabled):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, assistant.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, chat.ErrSessionNotFound),
		errors.Is(err, callsession.ErrSessionNotFound),
		errors.Is(err, wizard.ErrNotStarted):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, assistant.ErrInvalidArgument),
		errors.Is(err, auth.ErrInvalidArgument),
		errors.Is(err, calllog.ErrInvalidArgument),
		errors.Is(err, chat.ErrInvalidArgument),
		errors.Is(err, demo.ErrInvalidArgument),
		errors.Is(err, wizard.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.FromGin(c).Error("request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
