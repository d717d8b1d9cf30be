package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/authhub/internal/accounts"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type Registrar interface {
	Register(ctx context.Context, p user.RegisterPayload) (user.Public, error)
}

type Authenticator interface {
	Login(ctx context.Context, req accounts.LoginRequest) (accounts.LoginResult, error)
	Authenticated(ctx context.Context, id string) (user.Public, error)
}

type AuthHandler struct {
	registrar Registrar
	auth      Authenticator
	log       *slog.Logger
}

func NewAuthHandler(registrar Registrar, auth Authenticator, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}

	return &AuthHandler{registrar: registrar, auth: auth, log: log}
}

// Register creates an account. Every invalid field is reported in one 422
// response; the top-level message joins them in field order.
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	payload, err := user.ValidateRegistration(req)
	if err != nil {
		var verr *user.ValidationError
		if errors.As(err, &verr) {
			h.log.DebugContext(ctx.Request.Context(), "registration rejected",
				"request_id", requestIDFrom(ctx), "reason", verr.Error())
			RespondUnprocessable(ctx, verr.Error(), verr.Issues())
			return
		}

		RespondBadRequest(ctx, "Invalid request body", nil)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	created, err := h.registrar.Register(cctx, payload)
	if err != nil {
		if errors.Is(err, user.ErrAlreadyExists) {
			RespondConflict(ctx, "user_already_exists", "Username or email is already registered")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "register failed",
			"request_id", requestIDFrom(ctx), "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req accounts.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	res, err := h.auth.Login(cctx, req)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "login failed",
			"request_id", requestIDFrom(ctx), "err", err)
		RespondInternal(ctx, "Could not log in")
		return
	}

	ctx.JSON(http.StatusOK, res)
}

func (h *AuthHandler) AuthenticatedUser(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)
	if !ok || id == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing authenticated user")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	// username comes from the token; used only to make logs readable
	username, _ := middlewares.UsernameFromContext(ctx)

	p, err := h.auth.Authenticated(cctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// valid token for a user that no longer exists
			h.log.WarnContext(ctx.Request.Context(), "authenticated user not found",
				"request_id", requestIDFrom(ctx), "user_id", id, "username", username)
			RespondNotFound(ctx, "User not found")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "load authenticated user failed",
			"request_id", requestIDFrom(ctx), "user_id", id, "username", username, "err", err)
		RespondInternal(ctx, "Could not load user")
		return
	}

	ctx.JSON(http.StatusOK, p)
}
