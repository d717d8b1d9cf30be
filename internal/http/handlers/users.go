package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/authhub/internal/accounts"
	"github.com/geocoder89/authhub/internal/utils"
	"github.com/gin-gonic/gin"
)

type UserLister interface {
	List(ctx context.Context, cursor string, limit int) (accounts.ListResult, error)
}

type UsersHandler struct {
	users UserLister
	log   *slog.Logger
}

func NewUsersHandler(users UserLister, log *slog.Logger) *UsersHandler {
	if log == nil {
		log = slog.Default()
	}

	return &UsersHandler{users: users, log: log}
}

// List serves GET /users?limit=&cursor=. Responses carry an ETag so polling
// clients can revalidate cheaply.
func (h *UsersHandler) List(ctx *gin.Context) {
	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > accounts.MaxListLimit {
			RespondBadRequest(ctx, "limit must be between 1 and 100", gin.H{"limit": raw})
			return
		}
		limit = n
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	res, err := h.users.List(cctx, ctx.Query("cursor"), limit)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidCursor) {
			RespondBadRequest(ctx, "Invalid cursor", nil)
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "list users failed",
			"request_id", requestIDFrom(ctx), "err", err)
		RespondInternal(ctx, "Could not list users")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, res)
}
