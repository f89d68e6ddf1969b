package handler

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"attendtrack/internal/apperr"
	"attendtrack/internal/attendance"
	"attendtrack/internal/auth"
	"attendtrack/internal/report"
	"attendtrack/internal/user"
)

// AuthConfig carries the token parameters the handlers need.
type AuthConfig struct {
	Issuer     string
	SigningKey string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Handler exposes the HTTP surface over the services.
type Handler struct {
	users    *user.Service
	sessions *attendance.Service
	tokens   *auth.TokenStore
	authCfg  AuthConfig
}

// New creates a handler.
func New(users *user.Service, sessions *attendance.Service, tokens *auth.TokenStore, authCfg AuthConfig) *Handler {
	return &Handler{users: users, sessions: sessions, tokens: tokens, authCfg: authCfg}
}

func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"success": false, "message": apperr.Message(err)})
}

// ---------- Auth ----------

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and issues a token pair.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	acct, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	pair, err := auth.Issue(acct.ID, acct.Username, acct.Role, h.authCfg.Issuer, h.authCfg.SigningKey, h.authCfg.AccessTTL, h.authCfg.RefreshTTL)
	if err != nil {
		respondError(c, apperr.Internal(err))
		return
	}
	if err := h.tokens.Save(c.Request.Context(), acct.ID, pair.RefreshToken); err != nil {
		log.Printf("refresh token save failed: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.AccessExp.Unix(),
		"role":          acct.Role,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh rotates a refresh token into a new pair.
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	ctx := c.Request.Context()

	userID, err := h.tokens.Validate(ctx, req.RefreshToken)
	if err != nil {
		respondError(c, apperr.Auth("invalid refresh token"))
		return
	}
	claims, err := auth.Parse(req.RefreshToken, h.authCfg.SigningKey, h.authCfg.Issuer)
	if err != nil || claims.Subject != userID {
		respondError(c, apperr.Auth("invalid refresh token"))
		return
	}

	pair, err := auth.Issue(claims.Subject, claims.Username, claims.Role, h.authCfg.Issuer, h.authCfg.SigningKey, h.authCfg.AccessTTL, h.authCfg.RefreshTTL)
	if err != nil {
		respondError(c, apperr.Internal(err))
		return
	}
	_ = h.tokens.Revoke(ctx, req.RefreshToken)
	if err := h.tokens.Save(ctx, claims.Subject, pair.RefreshToken); err != nil {
		log.Printf("refresh token save failed: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.AccessExp.Unix(),
	})
}

// Logout revokes the presented refresh token.
func (h *Handler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	_ = h.tokens.Revoke(c.Request.Context(), req.RefreshToken)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "logged out"})
}

// ---------- Sessions ----------

// CheckIn opens a session for the caller.
func (h *Handler) CheckIn(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		respondError(c, apperr.Auth("unauthenticated"))
		return
	}
	var in attendance.CheckInInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	sess, err := h.sessions.CheckIn(c.Request.Context(), claims.Subject, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Check-in successful!", "id": sess.ID})
}

// CheckOut closes the caller's active session.
func (h *Handler) CheckOut(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		respondError(c, apperr.Auth("unauthenticated"))
		return
	}
	var in attendance.CheckOutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	sess, err := h.sessions.CheckOut(c.Request.Context(), claims.Subject, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Check-out successful!", "id": sess.ID})
}

// History returns the caller's recent sessions.
func (h *Handler) History(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		respondError(c, apperr.Auth("unauthenticated"))
		return
	}
	limit := 10
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	sessions, err := h.sessions.History(c.Request.Context(), claims.Subject, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if sessions == nil {
		sessions = []attendance.Session{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// ActiveSession returns the caller's open session, if any.
func (h *Handler) ActiveSession(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		respondError(c, apperr.Auth("unauthenticated"))
		return
	}
	sess, err := h.sessions.ActiveSession(c.Request.Context(), claims.Subject)
	if err != nil {
		respondError(c, err)
		return
	}
	if sess == nil {
		respondError(c, apperr.NotFound("not checked in"))
		return
	}
	c.JSON(http.StatusOK, sess)
}

// ---------- Admin ----------

// CreateUser registers a new account.
func (h *Handler) CreateUser(c *gin.Context) {
	var in user.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	acct, err := h.users.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, acct)
}

// ListUsers returns all accounts.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if users == nil {
		users = []user.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// ToggleLocation flips the per-user location flag.
func (h *Handler) ToggleLocation(c *gin.Context) {
	enabled, err := h.users.ToggleLocation(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "location_enabled": enabled})
}

// ListAttendance returns every session joined with usernames.
func (h *Handler) ListAttendance(c *gin.Context) {
	sessions, err := h.sessions.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if sessions == nil {
		sessions = []attendance.Session{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// ExportReport streams the attendance spreadsheet.
func (h *Handler) ExportReport(c *gin.Context) {
	sessions, err := h.sessions.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	f, err := report.Export(sessions)
	if err != nil {
		respondError(c, apperr.Internal(err))
		return
	}
	exportsTotal.Inc()

	filename := "attendance_report_" + time.Now().UTC().Format("20060102") + ".xlsx"
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := f.Write(c.Writer); err != nil {
		log.Printf("report write failed: %v", err)
	}
}

// Purge wipes all sessions and archived media.
func (h *Handler) Purge(c *gin.Context) {
	res, err := h.sessions.Purge(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": res})
}
