package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/http/middleware"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/adapter/http/models"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/commons"
	"github.com/sse-simulator/stock-trading-simulator/src/internal/domain"
)

type AccountService interface {
	Register(ctx context.Context, req models.RegisterRequest) (commons.Response[models.AccountResponse], error)
	Login(ctx context.Context, req models.LoginRequest) (commons.Response[models.LoginResponse], error)
	Logout(ctx context.Context, token string) (commons.Response[models.LogoutResponse], error)
	Me(ctx context.Context, identity domain.Identity) (commons.Response[models.AccountResponse], error)
}

type CookieConfig struct {
	Name   string
	Secure bool
}

type AccountController struct {
	service AccountService
	cookie  CookieConfig
}

func NewAccountController(service AccountService, cookie CookieConfig) *AccountController {
	return &AccountController{service: service, cookie: cookie}
}

func (c *AccountController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /api/register", c.register)
	mux.HandleFunc("POST /api/login", c.login)
	mux.Handle("POST /api/logout", protect(c.logout, authMiddleware))
	mux.Handle("GET /api/me", protect(c.me, authMiddleware))
}

func (c *AccountController) register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.RegisterRequest
	if !decodeBody[models.AccountResponse](w, r, start, &req) {
		return
	}

	response, err := c.service.Register(r.Context(), req)
	respond(w, r, start, http.StatusCreated, response, err)
}

func (c *AccountController) login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.LoginRequest
	if !decodeBody[models.LoginResponse](w, r, start, &req) {
		return
	}

	response, err := c.service.Login(r.Context(), req)
	if err == nil && response.Data != nil && c.cookie.Name != "" {
		expires, _ := time.Parse(time.RFC3339, response.Data.ExpiresAt)
		http.SetCookie(w, &http.Cookie{
			Name:     c.cookie.Name,
			Value:    response.Data.Token,
			Path:     "/",
			Expires:  expires,
			HttpOnly: true,
			Secure:   c.cookie.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	respond(w, r, start, http.StatusOK, response, err)
}

func (c *AccountController) logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	response, err := c.service.Logout(r.Context(), middleware.SessionToken(r, c.cookie.Name))
	if err == nil && c.cookie.Name != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     c.cookie.Name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   c.cookie.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	respond(w, r, start, http.StatusOK, response, err)
}

func (c *AccountController) me(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	caller, ok := identity[models.AccountResponse](w, r, start)
	if !ok {
		return
	}

	response, err := c.service.Me(r.Context(), caller)
	respond(w, r, start, http.StatusOK, response, err)
}
