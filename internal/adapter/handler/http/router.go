package http

import (
	"reflect"
	"strings"

	"github.com/MikeRez0/storefront/internal/adapter/metrics"
	"github.com/MikeRez0/storefront/internal/core/port"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

type Router struct {
	*gin.Engine
}

func NewRouter(
	handler *Handler,
	tokenService port.TokenService,
	orderHandler *OrderHandler,
	logger *zap.Logger) (*Router, error) {

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}

	router := gin.New()
	router.Use(gin.Recovery(), tracing(), requestDuration())

	// Swagger
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	{
		orders := api.Group("/orders")
		{
			orders.POST("/guest-cod", orderHandler.CheckoutAsGuest)
			orders.GET("/guest", orderHandler.ListGuestOrders)

			user := orders.Group("")
			{
				user.Use(authCheck(handler, tokenService))
				user.POST("", orderHandler.CheckoutAsUser)
				user.GET("", orderHandler.ListOrdersByUser)
				user.GET("/number/:number", orderHandler.GetOrderByNumber)
				user.GET("/:id", orderHandler.GetOrder)

				admin := user.Group("/:id")
				{
					admin.Use(adminOnly(handler))
					admin.PATCH("/status", orderHandler.UpdateStatus)
					admin.PATCH("/payment", orderHandler.UpdatePayment)
				}
			}
		}
	}

	logger.Debug("Routes registered", zap.Int("count", len(router.Routes())))
	return &Router{router}, nil
}

// jsonFieldName reports validation errors by their json or query name.
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "" {
		name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
	}
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}
