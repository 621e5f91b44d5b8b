package http

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/MikeRez0/storefront/internal/adapter/metrics"
	"github.com/MikeRez0/storefront/internal/core/domain"
	"github.com/MikeRez0/storefront/internal/core/port"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const authHeaderKey = "Authorization"
const authType = "Bearer"
const userPayloadKey = "user_payload"

const tracerName = "storefront/http"

func authCheck(h *Handler, tokenService port.TokenService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.Request.Header.Get(authHeaderKey)
		if len(header) == 0 {
			h.handleAbort(ctx, domain.ErrEmptyAuthorizationHeader)
			return
		}

		words := strings.Split(header, " ")
		if len(words) != 2 {
			h.handleAbort(ctx, domain.ErrInvalidAuthorizationHeader)
			return
		}
		if words[0] != authType {
			h.handleAbort(ctx, domain.ErrInvalidAuthorizationType)
			return
		}
		token := words[1]
		payload, err := tokenService.VerifyToken(token)
		if err != nil {
			if !errors.Is(err, domain.ErrExpiredToken) {
				err = domain.ErrInvalidToken
			}
			h.handleAbort(ctx, err)
			return
		}

		ctx.Set(userPayloadKey, payload)

		ctx.Next()
	}
}

// adminOnly must run after authCheck.
func adminOnly(h *Handler) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !getAuthPayload(ctx).IsAdmin() {
			h.handleAbort(ctx, domain.ErrForbidden)
			return
		}
		ctx.Next()
	}
}

func getAuthPayload(ctx *gin.Context) *port.TokenPayload {
	return ctx.MustGet(userPayloadKey).(*port.TokenPayload)
}

// requesterID is the ownership check subject: empty for admins.
func requesterID(ctx *gin.Context) string {
	payload := getAuthPayload(ctx)
	if payload.IsAdmin() {
		return ""
	}
	return payload.UserID
}

// tracing starts a server span per request, continuing a trace from the
// incoming headers when present.
func tracing() gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)
	return func(ctx *gin.Context) {
		propagator := otel.GetTextMapPropagator()
		reqCtx := propagator.Extract(ctx.Request.Context(), propagation.HeaderCarrier(ctx.Request.Header))

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		reqCtx, span := tracer.Start(reqCtx, ctx.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", ctx.Request.Method),
				attribute.String("http.route", route),
			))
		defer span.End()

		ctx.Request = ctx.Request.WithContext(reqCtx)
		ctx.Next()

		status := ctx.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, strconv.Itoa(status))
		}
	}
}

func requestDuration() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestDuration.
			WithLabelValues(ctx.Request.Method, route, strconv.Itoa(ctx.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
