package turn

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/taketurn/taketurn/internal/application/turn/dto"
	"github.com/taketurn/taketurn/internal/application/turn/usecases"
	turndomain "github.com/taketurn/taketurn/internal/domain/turn"
	"github.com/taketurn/taketurn/internal/shared/errors"
	"github.com/taketurn/taketurn/internal/shared/logger"
	"github.com/taketurn/taketurn/internal/shared/utils"
)

// RootBanner is the plain-text body served on GET /.
const RootBanner = "take-unique-turn API OK"

// TurnService is what the handler needs from the turn application layer.
type TurnService interface {
	AllocateOrGetNext(ctx context.Context) (*dto.TurnDTO, error)
	Reserve(ctx context.Context, id string) (*usecases.ReserveTurnResult, error)
	Assign(ctx context.Context, id, userName string) (*usecases.AssignTurnResult, error)
	ListAll(ctx context.Context) (*usecases.ListTurnsResult, error)
	Reset(ctx context.Context) (*usecases.ResetTurnsResult, error)
}

type TurnHandler struct {
	service TurnService
	logger  logger.Interface
}

func NewTurnHandler(service TurnService, log logger.Interface) *TurnHandler {
	return &TurnHandler{
		service: service,
		logger:  log,
	}
}

// Root handles GET /
func (h *TurnHandler) Root(c *gin.Context) {
	c.String(http.StatusOK, RootBanner)
}

// ListAll handles GET /all. It answers with the bare array legacy pages read.
func (h *TurnHandler) ListAll(c *gin.Context) {
	result, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result.Turns)
}

// ListTurns handles GET /api/v1/turns
func (h *TurnHandler) ListTurns(c *gin.Context) {
	result, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.ListSuccessResponse(c, result.Turns, result.Total)
}

// NextTurn handles GET /api/v1/turns/next
func (h *TurnHandler) NextTurn(c *gin.Context) {
	next, err := h.service.AllocateOrGetNext(c.Request.Context())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", next)
}

// ReserveTurn handles POST /api/v1/turns/:id/reserve
func (h *TurnHandler) ReserveTurn(c *gin.Context) {
	id, err := parseTurnID(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.service.Reserve(c.Request.Context(), id)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Turn reserved", result)
}

// AssignTurn handles POST /api/v1/turns/:id/assign
func (h *TurnHandler) AssignTurn(c *gin.Context) {
	id, err := parseTurnID(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req AssignTurnRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warnw("invalid request body for assign turn", "error", err)
			utils.ErrorResponseWithError(c, errors.NewValidationError("invalid request body", err.Error()))
			return
		}
	}

	result, err := h.service.Assign(c.Request.Context(), id, req.UserName)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	message := "Turn assigned"
	if !result.Assigned {
		message = "Turn was already assigned"
	}
	utils.SuccessResponse(c, http.StatusOK, message, result)
}

// ReserveAndRedirect handles GET /assign/:id, the link a scanned code opens.
func (h *TurnHandler) ReserveAndRedirect(c *gin.Context) {
	id, err := parseTurnID(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	if _, err := h.service.Reserve(c.Request.Context(), id); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/assign.html?"+url.Values{"id": {id}}.Encode())
}

// AssignAndRedirect handles GET and POST /getTurn/:id. POST reads the
// user_name form field; GET assigns the anonymous holder.
func (h *TurnHandler) AssignAndRedirect(c *gin.Context) {
	id, err := parseTurnID(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	userName := turndomain.AnonymousHolder
	if c.Request.Method == http.MethodPost {
		var req AssignTurnRequest
		if err := c.ShouldBind(&req); err != nil {
			h.logger.Warnw("invalid form for assign turn", "error", err)
			utils.ErrorResponseWithError(c, errors.NewValidationError("invalid form", err.Error()))
			return
		}
		userName = req.UserName
	}

	result, err := h.service.Assign(c.Request.Context(), id, userName)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	query := url.Values{
		"name": {result.Turn.Holder},
		"turn": {strconv.FormatInt(result.Turn.Number, 10)},
	}
	c.Redirect(http.StatusFound, "/thanks.html?"+query.Encode())
}

// Reset handles POST /reset
func (h *TurnHandler) Reset(c *gin.Context) {
	result, err := h.service.Reset(c.Request.Context())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	c.String(http.StatusOK, fmt.Sprintf("turns cleared, next turn is [%s]", result.Next.ID))
}

func parseTurnID(c *gin.Context) (string, error) {
	id := c.Param("id")
	if id == "" {
		return "", errors.NewValidationError("turn id is required")
	}
	return id, nil
}
