// handlers_interactions.go - Interaction log handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// Interaction listing limits.
const (
	DefaultInteractionLimit = 50
	MaxInteractionLimit     = 500
)

// InteractionHandlerImpl implements the InteractionHandler interface
type InteractionHandlerImpl struct {
	interactions InteractionLister
}

// NewInteractionHandler creates a new interaction handler instance
func NewInteractionHandler(interactions InteractionLister) InteractionHandler {
	return &InteractionHandlerImpl{interactions: interactions}
}

func parseLimit(c echo.Context) int {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = DefaultInteractionLimit
	}
	if limit > MaxInteractionLimit {
		limit = MaxInteractionLimit
	}
	return limit
}

// HandleListInteractions returns recent interactions, newest first
func (h *InteractionHandlerImpl) HandleListInteractions(c echo.Context) error {
	limit := parseLimit(c)
	list, err := h.interactions.Recent(c.Request().Context(), limit)
	if err != nil {
		if apiErr := FromDomainError(err); apiErr != nil {
			return apiErr
		}
		return NewInternalError("failed to list interactions", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"interactions": list,
		"count":        len(list),
		"limit":        limit,
	})
}

// HandleListInteractionsMsgpack returns recent interactions in MessagePack format.
func (h *InteractionHandlerImpl) HandleListInteractionsMsgpack(c echo.Context) error {
	limit := parseLimit(c)
	list, err := h.interactions.Recent(c.Request().Context(), limit)
	if err != nil {
		if apiErr := FromDomainError(err); apiErr != nil {
			return apiErr
		}
		return NewInternalError("failed to list interactions", err)
	}

	data, err := msgpack.Marshal(map[string]interface{}{
		"interactions": list,
		"count":        len(list),
		"limit":        limit,
	})
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}

	return c.Blob(http.StatusOK, "application/msgpack", data)
}
