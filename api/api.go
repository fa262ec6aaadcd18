package api

import (
	"errors"

	"github.com/leadforge/leadforge/config"

	"github.com/leadforge/leadforge/api/middleware"
	"github.com/leadforge/leadforge/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/leadforge/leadforge"
)

type Api struct {
	forge  *leadforge.LeadForge
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/workspaces", a.CreateWorkspace)
	router.GET("/workspaces/:id", a.GetWorkspace)
	router.GET("/workspaces", a.GetAllWorkspaces)
	router.DELETE("/workspaces/:id", a.DeleteWorkspace)

	router.POST("/enqueue", a.EnqueueJob)
	router.GET("/status/:job_id", a.GetJobStatus)
	router.GET("/stream/:job_id", a.StreamJobStatus)

	router.GET("/leads", a.GetAllLeads)
	router.GET("/leads/:id", a.GetLead)
	return a.router
}

func NewAPI(forge *leadforge.LeadForge) (*Api, error) {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	r := gin.Default()
	r.Use(middleware.TokenAuthMiddleware())
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{forge: forge, router: r}, nil
}

// handleError maps service errors onto HTTP responses. Coded errors keep
// their code and message in the body so callers can branch on them.
func handleError(c *gin.Context, err error) {
	status := apierror.MapErrorToHTTPStatus(err)
	var apiErr apierror.APIError
	if errors.As(err, &apiErr) {
		c.JSON(status, gin.H{"error": apiErr.Message, "code": apiErr.Code})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
