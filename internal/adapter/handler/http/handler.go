package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MikeRez0/storefront/internal/adapter/config"
	"github.com/MikeRez0/storefront/internal/core/domain"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/govalues/decimal"
	"go.uber.org/zap"
)

// errorStatusMap is matched in order with errors.Is, so wrapped errors must
// come before the categories they wrap.
var errorStatusMap = []struct {
	err    error
	status int
}{
	{domain.ErrOrderNumberTaken, http.StatusConflict},
	{domain.ErrAccessDenied, http.StatusForbidden},

	{domain.ErrInternal, http.StatusInternalServerError},
	{domain.ErrDataNotFound, http.StatusNotFound},
	{domain.ErrConflictingData, http.StatusConflict},

	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrEmptyAuthorizationHeader, http.StatusUnauthorized},
	{domain.ErrInvalidAuthorizationHeader, http.StatusUnauthorized},
	{domain.ErrInvalidAuthorizationType, http.StatusUnauthorized},
	{domain.ErrInvalidToken, http.StatusUnauthorized},
	{domain.ErrExpiredToken, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},

	{domain.ErrNoUpdatedData, http.StatusBadRequest},
	{domain.ErrBadRequest, http.StatusBadRequest},
	{domain.ErrValidation, http.StatusBadRequest},

	{domain.ErrItemUnavailable, http.StatusBadRequest},
	{domain.ErrInsufficientStock, http.StatusBadRequest},
	{domain.ErrPriceChanged, http.StatusConflict},
	{domain.ErrCouponInvalid, http.StatusBadRequest},
	{domain.ErrInvalidTransition, http.StatusBadRequest},
	{domain.ErrPaymentSettled, http.StatusConflict},
}

func errorStatus(err error) (int, bool) {
	for _, e := range errorStatusMap {
		if errors.Is(err, e.err) {
			return e.status, true
		}
	}
	return http.StatusInternalServerError, false
}

// jsonDecimal renders money as a JSON number without losing precision.
type jsonDecimal decimal.Decimal

func (j jsonDecimal) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(j).String()), nil
}

type response struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	Data       any                 `json:"data,omitempty"`
	Pagination *paginationResponse `json:"pagination,omitempty"`
	Details    any                 `json:"details,omitempty"`
}

type paginationResponse struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type fieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type Handler struct {
	logger     *zap.Logger
	production bool
}

func NewHandler(conf *config.App, logger *zap.Logger) *Handler {
	return &Handler{
		logger:     logger,
		production: conf != nil && conf.Mode == config.AppModeProduction,
	}
}

// handleValidationError sends an error response for a request that failed binding
func (h *Handler) handleValidationError(ctx *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fieldError{Field: fe.Field(), Reason: validationReason(fe)})
		}
		ctx.JSON(http.StatusBadRequest, response{Message: "Validation failed", Details: details})
		return
	}
	ctx.JSON(http.StatusBadRequest, response{Message: domain.ErrBadRequest.Error()})
}

func validationReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	}
	return fmt.Sprintf("failed on %s", fe.Tag())
}

// handleAbort sends an error response and aborts the request with the status mapped from err
func (h *Handler) handleAbort(ctx *gin.Context, err error) {
	statusCode, resp := h.errorResponse(err)
	ctx.AbortWithStatusJSON(statusCode, resp)
}

func (h *Handler) handleError(ctx *gin.Context, err error) {
	statusCode, resp := h.errorResponse(err)
	ctx.JSON(statusCode, resp)
}

func (h *Handler) errorResponse(err error) (int, response) {
	statusCode, ok := errorStatus(err)
	if !ok || statusCode >= http.StatusInternalServerError {
		h.logger.Error("error processing request", zap.Error(err))
		if h.production {
			return statusCode, response{Message: http.StatusText(statusCode)}
		}
	}
	return statusCode, response{Message: err.Error(), Details: errorDetails(err)}
}

func errorDetails(err error) any {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return []fieldError{{Field: validationErr.Field, Reason: validationErr.Reason}}
	}
	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		return gin.H{
			"productId": stockErr.ProductID,
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		}
	}
	var priceErr *domain.PriceChangedError
	if errors.As(err, &priceErr) {
		return gin.H{
			"productId": priceErr.ProductID,
			"quoted":    jsonDecimal(priceErr.Quoted),
			"current":   jsonDecimal(priceErr.Current),
		}
	}
	var unavailableErr *domain.ItemUnavailableError
	if errors.As(err, &unavailableErr) {
		return gin.H{"productId": unavailableErr.ProductID}
	}
	var minErr *domain.MinSubtotalNotMetError
	if errors.As(err, &minErr) {
		return gin.H{"minSubtotal": jsonDecimal(minErr.Required)}
	}
	var transitionErr *domain.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		return gin.H{"from": transitionErr.From, "to": transitionErr.To}
	}
	return nil
}

// handleSuccessWithStatus sends a success envelope with the specified status code and optional data
func (h *Handler) handleSuccessWithStatus(ctx *gin.Context, message string, data any, status int) {
	ctx.JSON(status, response{Success: true, Message: message, Data: data})
}

func (h *Handler) handleSuccess(ctx *gin.Context, message string, data any) {
	h.handleSuccessWithStatus(ctx, message, data, http.StatusOK)
}

func (h *Handler) handleSuccessPage(ctx *gin.Context, message string, data any, p domain.Pagination) {
	ctx.JSON(http.StatusOK, response{
		Success: true,
		Message: message,
		Data:    data,
		Pagination: &paginationResponse{
			Page:  p.Page,
			Limit: p.Limit,
			Total: p.Total,
			Pages: p.Pages,
		},
	})
}
