package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/dig"

	"github.com/fenwick-ai/ragengine/internal/config"
	"github.com/fenwick-ai/ragengine/internal/handler"
	"github.com/fenwick-ai/ragengine/internal/middleware"
)

// RouterParams bundles every handler the HTTP surface mounts.
type RouterParams struct {
	dig.In

	Config                *config.Config
	SearchHandler         *handler.SearchHandler
	CollectionHandler     *handler.CollectionHandler
	SessionHandler        *handler.SessionHandler
	PipelineConfigHandler *handler.PipelineConfigHandler
	PromptTemplateHandler *handler.PromptTemplateHandler
	ModelHandler          *handler.ModelHandler
	EvaluationHandler     *handler.EvaluationHandler
	HealthHandler         *handler.HealthHandler
	SystemHandler         *handler.SystemHandler
}

// NewRouter builds the gin engine with the full middleware chain.
func NewRouter(params RouterParams) *gin.Engine {
	r := gin.New()

	// CORS runs before everything else.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Access-Control-Allow-Origin"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.Auth(params.Config))
	r.Use(middleware.TracingMiddleware())

	// Liveness probe: answers before any dependency is up.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		RegisterSearchRoutes(v1, params.SearchHandler)
		RegisterCollectionRoutes(v1, params.CollectionHandler)
		RegisterSessionRoutes(v1, params.SessionHandler)
		RegisterPipelineRoutes(v1, params.PipelineConfigHandler)
		RegisterTemplateRoutes(v1, params.PromptTemplateHandler)
		RegisterModelRoutes(v1, params.ModelHandler)
		RegisterEvaluationRoutes(v1, params.EvaluationHandler)
		RegisterSystemRoutes(v1, params.SystemHandler, params.HealthHandler)
	}

	return r
}

// RegisterSearchRoutes mounts the one-shot search entry point.
func RegisterSearchRoutes(r *gin.RouterGroup, handler *handler.SearchHandler) {
	r.POST("/search", handler.Search)
}

// RegisterCollectionRoutes mounts collection management.
func RegisterCollectionRoutes(r *gin.RouterGroup, handler *handler.CollectionHandler) {
	collections := r.Group("/collections")
	{
		collections.POST("", handler.CreateCollection)
		collections.GET("", handler.ListCollections)
		collections.GET("/:id", handler.GetCollection)
		collections.PUT("/:id", handler.UpdateCollection)
		collections.DELETE("/:id", handler.DeleteCollection)
	}
}

// RegisterSessionRoutes mounts conversation sessions and their messages.
func RegisterSessionRoutes(r *gin.RouterGroup, handler *handler.SessionHandler) {
	sessions := r.Group("/sessions")
	{
		sessions.POST("", handler.CreateSession)
		sessions.GET("", handler.ListSessions)
		sessions.GET("/:id", handler.GetSession)
		sessions.PUT("/:id", handler.UpdateSession)
		sessions.DELETE("/:id", handler.DeleteSession)
		sessions.POST("/:session_id/generate_title", handler.GenerateTitle)
		// One conversational turn; the response streams as SSE frames.
		sessions.POST("/:session_id/messages", handler.Ask)
		sessions.GET("/:session_id/messages", handler.LoadMessages)
		sessions.DELETE("/:session_id/messages/:id", handler.DeleteMessage)
	}
}

// RegisterPipelineRoutes mounts pipeline configuration management.
func RegisterPipelineRoutes(r *gin.RouterGroup, handler *handler.PipelineConfigHandler) {
	pipelines := r.Group("/pipelines")
	{
		pipelines.POST("", handler.CreatePipeline)
		pipelines.GET("", handler.ListPipelines)
		pipelines.GET("/:id", handler.GetPipeline)
		pipelines.PUT("/:id", handler.UpdatePipeline)
		pipelines.DELETE("/:id", handler.DeletePipeline)
	}
}

// RegisterTemplateRoutes mounts prompt template management.
func RegisterTemplateRoutes(r *gin.RouterGroup, handler *handler.PromptTemplateHandler) {
	templates := r.Group("/templates")
	{
		templates.POST("", handler.CreateTemplate)
		templates.GET("", handler.ListTemplates)
		templates.GET("/:id", handler.GetTemplate)
		templates.PUT("/:id", handler.UpdateTemplate)
		templates.DELETE("/:id", handler.DeleteTemplate)
	}
}

// RegisterModelRoutes mounts model registry management.
func RegisterModelRoutes(r *gin.RouterGroup, handler *handler.ModelHandler) {
	models := r.Group("/models")
	{
		models.POST("", handler.CreateModel)
		models.GET("", handler.ListModels)
		models.GET("/:id", handler.GetModel)
		models.PUT("/:id", handler.UpdateModel)
		models.DELETE("/:id", handler.DeleteModel)
	}
}

// RegisterEvaluationRoutes mounts background evaluation runs.
func RegisterEvaluationRoutes(r *gin.RouterGroup, handler *handler.EvaluationHandler) {
	evaluation := r.Group("/evaluation")
	{
		evaluation.POST("", handler.Evaluation)
		evaluation.GET("/:id", handler.GetEvaluationResult)
		evaluation.POST("/export", handler.Export)
	}
}

// RegisterSystemRoutes mounts system info and the dependency health report.
func RegisterSystemRoutes(r *gin.RouterGroup, system *handler.SystemHandler, health *handler.HealthHandler) {
	systemRoutes := r.Group("/system")
	{
		systemRoutes.GET("/info", system.GetSystemInfo)
		systemRoutes.GET("/health", health.CheckDependencies)
	}
}
