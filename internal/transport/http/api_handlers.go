package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/singroom-server/internal/auth"
	"github.com/vovakirdan/singroom-server/internal/core"
	"github.com/vovakirdan/singroom-server/internal/identity"
	"github.com/vovakirdan/singroom-server/internal/store"
)

// APIHandlers provides HTTP handlers for REST API endpoints.
type APIHandlers struct {
	authService *auth.Service
	hub         *core.Hub
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, hub *core.Hub, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		hub:         hub,
		log:         logger,
	}
}

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=6"`
	Gender   string `json:"gender"`
	Avatar   string `json:"avatar"`
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// GuestRequest represents the optional guest login body.
type GuestRequest struct {
	Nickname string `json:"nickname" binding:"max=24"`
	Gender   string `json:"gender"`
}

// UserResponse is the public view of an identity.
type UserResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Guest    bool   `json:"guest"`
	Level    int    `json:"level"`
	Exp      int    `json:"exp"`
	Gender   string `json:"gender"`
	Avatar   string `json:"avatar,omitempty"`
	Online   bool   `json:"online"`
}

// AuthResponse represents the authentication response body.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *APIHandlers) topTier() int {
	return h.hub.TopTier()
}

func identityResponse(ident identity.Identity, topTier int) UserResponse {
	return UserResponse{
		Username: ident.Name,
		Role:     string(ident.Role(topTier)),
		Guest:    ident.Kind == identity.KindGuest,
		Level:    ident.Level,
		Exp:      ident.Exp,
		Gender:   ident.Gender,
		Avatar:   ident.Avatar,
		Online:   true,
	}
}

func userResponse(u *store.User, topTier int) UserResponse {
	kind := identity.KindAccount
	if u.IsGuest {
		kind = identity.KindGuest
	}
	return UserResponse{
		Username: u.Username,
		Role:     string(identity.RoleFor(kind, u.Level, topTier)),
		Guest:    u.IsGuest,
		Level:    u.Level,
		Exp:      u.Exp,
		Gender:   u.Gender,
		Avatar:   u.Avatar,
		Online:   u.IsOnline,
	}
}

// Register handles account registration and signs the new account in.
// POST /api/register
func (h *APIHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.authService.Register(ctx, req.Username, req.Password, req.Gender, req.Avatar); err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "user already exists"})
		case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidPassword):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			h.log.Error().Err(err).Str("username", req.Username).Msg("failed to register user")
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: core.ErrCodeUnavailable})
		}
		return
	}

	sess, err := h.authService.Login(ctx, req.Username, req.Password)
	if err != nil {
		h.log.Error().Err(err).Str("username", req.Username).Msg("failed to sign in new user")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: core.ErrCodeUnavailable})
		return
	}

	h.log.Info().Str("username", req.Username).Msg("user registered successfully")
	c.JSON(http.StatusCreated, AuthResponse{Token: sess.Token, User: identityResponse(sess.Identity, h.topTier())})
}

// Login handles user login. A previous session of the account is superseded.
// POST /api/login
func (h *APIHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	sess, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		h.log.Error().Err(err).Str("username", req.Username).Msg("failed to login user")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: core.ErrCodeUnavailable})
		return
	}

	h.log.Info().Str("username", req.Username).Msg("user logged in successfully")
	c.JSON(http.StatusOK, AuthResponse{Token: sess.Token, User: identityResponse(sess.Identity, h.topTier())})
}

// GuestLogin signs in a guest under the requested or a random nickname.
// POST /api/guest
func (h *APIHandlers) GuestLogin(c *gin.Context) {
	var req GuestRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
	}

	sess, err := h.authService.GuestLogin(c.Request.Context(), req.Nickname, req.Gender)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNicknameInUse):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "nickname in use"})
		case errors.Is(err, auth.ErrInvalidUsername):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			h.log.Error().Err(err).Msg("failed to create guest user")
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: core.ErrCodeUnavailable})
		}
		return
	}

	h.log.Info().Str("username", sess.Identity.Name).Msg("guest signed in")
	c.JSON(http.StatusOK, AuthResponse{Token: sess.Token, User: identityResponse(sess.Identity, h.topTier())})
}

// Logout revokes the caller's session.
// POST /api/logout
func (h *APIHandlers) Logout(c *gin.Context) {
	ident, token, ok := currentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	h.authService.Logout(c.Request.Context(), token, ident)
	c.Status(http.StatusNoContent)
}

// Me returns the caller's stored profile.
// GET /api/me
func (h *APIHandlers) Me(c *gin.Context) {
	ident, _, ok := currentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	user, err := h.authService.Profile(c.Request.Context(), ident.Name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Str("username", ident.Name).Msg("failed to load profile")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: core.ErrCodeUnavailable})
		return
	}
	c.JSON(http.StatusOK, userResponse(user, h.topTier()))
}

// Turn returns a room's queue and performer.
// GET /api/rooms/:room/turn
func (h *APIHandlers) Turn(c *gin.Context) {
	snap, err := h.hub.TurnSnapshot(c.Request.Context(), c.Param("room"))
	if err != nil {
		h.hubError(c, err)
		return
	}
	c.JSON(http.StatusOK, turnData(&snap))
}

// Members returns a room's membership snapshot.
// GET /api/rooms/:room/members
func (h *APIHandlers) Members(c *gin.Context) {
	room := c.Param("room")
	members, err := h.hub.Members(c.Request.Context(), room)
	if err != nil {
		h.hubError(c, err)
		return
	}
	c.JSON(http.StatusOK, membersData(room, members))
}

func (h *APIHandlers) hubError(c *gin.Context, err error) {
	if errors.Is(err, core.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}
	h.log.Warn().Err(err).Msg("hub query failed")
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: core.ErrCodeUnavailable})
}
