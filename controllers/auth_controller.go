package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/toolshed/config"
	"github.com/cppla/toolshed/middleware"
	"github.com/cppla/toolshed/services"
	"github.com/cppla/toolshed/utils"
)

// AuthController handles registration, email verification and cookie based sessions.
type AuthController struct {
	auth      *services.AuthService
	captcha   *utils.Captcha
	blacklist *utils.TokenBlacklist
	cfg       config.AppConfig
}

// NewAuthController creates an AuthController.
func NewAuthController(auth *services.AuthService, captcha *utils.Captcha, blacklist *utils.TokenBlacklist, cfg config.AppConfig) *AuthController {
	return &AuthController{auth: auth, captcha: captcha, blacklist: blacklist, cfg: cfg}
}

// Captcha returns a fresh captcha id and base64 image (data URI)
func (a *AuthController) Captcha(ctx *gin.Context) {
	id, b64, err := a.captcha.Generate()
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"id": id, "image": b64})
}

// Register creates an unverified account and sends the verification mail.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Email         string `json:"email" form:"email" binding:"required,email,max=255"`
		Password      string `json:"password" form:"password" binding:"required,min=6,max=72"`
		CaptchaID     string `json:"captcha_id" form:"captcha_id"`
		CaptchaAnswer string `json:"captcha_answer" form:"captcha_answer"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "a valid email and a password of 6-72 characters are required")
		return
	}
	if a.cfg.RegisterCaptchaEnabled && !a.captcha.Verify(req.CaptchaID, req.CaptchaAnswer) {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid captcha")
		return
	}

	user, err := a.auth.Register(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, gin.H{"id": user.ID, "message": "verification email sent"})
}

// Verify consumes an email verification token.
func (a *AuthController) Verify(ctx *gin.Context) {
	if err := a.auth.Verify(ctx.Request.Context(), ctx.Query("token")); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"verified": true})
}

// Login checks credentials and sets the session cookie. The token is not returned in the body.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" form:"email" binding:"required"`
		Password string `json:"password" form:"password" binding:"required"`
		Remember *bool  `json:"remember" form:"remember"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, "email and password are required")
		return
	}

	user, err := a.auth.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ttl := a.cfg.SessionTTL()
	if req.Remember != nil && !*req.Remember {
		ttl = a.cfg.ShortSessionTTL()
	}
	token, _, err := utils.GenerateToken(a.cfg.JWTSecret, user.ID, ttl)
	if err != nil {
		respondError(ctx, err)
		return
	}
	a.setTokenCookie(ctx, token, ttl)
	utils.Success(ctx, gin.H{"ok": true})
}

// Logout revokes the presented token until it expires and clears the cookie.
func (a *AuthController) Logout(ctx *gin.Context) {
	if token := ctx.GetString(middleware.ContextTokenKey); token != "" {
		expiresAt := time.Now().Add(a.cfg.SessionTTL())
		if v, ok := ctx.Get(middleware.ContextTokenExpiryKey); ok {
			if t, ok := v.(time.Time); ok {
				expiresAt = t
			}
		}
		if err := a.blacklist.Revoke(ctx.Request.Context(), token, expiresAt); err != nil {
			respondError(ctx, err)
			return
		}
	}
	a.setTokenCookie(ctx, "", -time.Second)
	utils.Success(ctx, gin.H{"ok": true})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	id, ok := middleware.IdentityFrom(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	user, err := a.auth.Me(ctx.Request.Context(), id.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, user)
}

func (a *AuthController) setTokenCookie(ctx *gin.Context, token string, ttl time.Duration) {
	maxAge := int(ttl / time.Second)
	if ttl < 0 {
		maxAge = -1
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.TokenCookie, token, maxAge, "/", "", a.cfg.CookieSecure, true)
}
