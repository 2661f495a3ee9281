package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter assembles the gin engine: cors, request id, logging, health,
// metrics and the handler's routes.
func NewRouter(handler *Handler, jwtSecret string, mode string, log zerolog.Logger) *gin.Engine {
	gin.SetMode(mode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(cors.Default())
	r.Use(RequestID())
	r.Use(RequestLogger(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, okMessage("ok"))
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.Register(r, JWTAuth(jwtSecret))
	return r
}
