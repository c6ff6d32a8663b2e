package api

import (
	"errors"
	"net/http"
	"time"

	reqdto "freshfold/internal/handler/dto/request"
	resdto "freshfold/internal/handler/dto/response"
	"freshfold/internal/handler/httperr"
	"freshfold/internal/handler/middleware"
	"freshfold/internal/pkg/config"
	"freshfold/internal/pkg/cookie"
	"freshfold/internal/usecase/commands"
	"freshfold/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

var (
	errMissingUserContext = errors.New("user_id missing from context")
	errMissingRefresh     = errors.New("refresh token missing")
)

type AuthHandler struct {
	commands      commands.AuthCommands
	queries       queries.UserQueries
	cookieCfg     config.CookieConfig
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewAuthHandler(authCommands commands.AuthCommands, userQueries queries.UserQueries, cfg config.Config) *AuthHandler {
	accessExpiry, err := time.ParseDuration(cfg.JWT.AccessTokenDuration)
	if err != nil {
		accessExpiry = 15 * time.Minute
	}
	refreshExpiry, err := time.ParseDuration(cfg.JWT.RefreshTokenDuration)
	if err != nil {
		refreshExpiry = 7 * 24 * time.Hour
	}
	return &AuthHandler{
		commands:      authCommands,
		queries:       userQueries,
		cookieCfg:     cfg.Cookie,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// @Summary Staff login
// @Description Login with email and password. Tokens are set as HttpOnly cookies and the access token is returned for bearer use.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body reqdto.LoginRequest true "Login request"
// @Success 200 {object} resdto.LoginResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req reqdto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	result, err := h.commands.Login(c.Request.Context(), req)
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	cookie.SetTokenCookies(c, h.cookieCfg,
		result.TokenPair.AccessToken, result.TokenPair.RefreshToken,
		h.accessExpiry, h.refreshExpiry)

	c.JSON(http.StatusOK, resdto.LoginResponse{
		AccessToken: result.TokenPair.AccessToken,
		User:        result.User,
	})
}

// @Summary Refresh tokens
// @Description Issue a new token pair from the refresh cookie or the request body
// @Tags auth
// @Accept json
// @Produce json
// @Param request body reqdto.RefreshRequest false "Refresh token when cookies are not used"
// @Success 200 {object} resdto.RefreshResponse
// @Failure 401 {object} httperr.Response
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	token := cookie.GetRefreshToken(c)
	if token == "" {
		var req reqdto.RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.AbortWithError(c, http.StatusUnauthorized, errMissingRefresh, "Refresh token required", nil)
			return
		}
		token = req.RefreshToken
	}

	pair, err := h.commands.RefreshToken(c.Request.Context(), token)
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	cookie.SetTokenCookies(c, h.cookieCfg, pair.AccessToken, pair.RefreshToken, h.accessExpiry, h.refreshExpiry)
	c.JSON(http.StatusOK, resdto.RefreshResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// @Summary Logout
// @Description Clear the token cookies. Tokens are stateless and expire on their own.
// @Tags auth
// @Success 204 "No Content"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	cookie.ClearTokenCookies(c, h.cookieCfg)
	c.Status(http.StatusNoContent)
}

// @Summary Get current user
// @Description Get current authenticated user information
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} queries.AuthorizedUserView
// @Failure 401 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		// should be used after RequireAuth()
		httperr.AbortWithError(c, http.StatusInternalServerError, errMissingUserContext, "Internal server error", nil)
		return
	}

	user, err := h.queries.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
