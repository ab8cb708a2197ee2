package handler

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/auth"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/metrics"
	"github.com/RenaMygdali/public-space-request-ms-app-backend-api/internal/model"
)

type RouterDeps struct {
	Users       *UserHandler
	Departments *DepartmentHandler
	Requests    *RequestHandler
	Profiles    *ProfileHandler
	Meta        *MetaHandler

	Tokens      *auth.TokenManager
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	CORSOrigins []string
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), Logger(d.Logger), Metrics(d.Metrics), corsMiddleware(d.CORSOrigins))

	r.GET("/health", d.Meta.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.GET("/statuses", d.Meta.Statuses)
	api.GET("/roles", d.Meta.Roles)

	api.POST("/users/signup", d.Users.SignUp)
	api.POST("/users/login", d.Users.Login)
	api.GET("/users/check-username", d.Users.CheckUsername)
	api.GET("/users/check-email", d.Users.CheckEmail)

	authed := api.Group("", Authenticate(d.Tokens))
	admin := RequireRole(model.RoleAdmin)
	staff := RequireRole(model.RoleOfficer, model.RoleAdmin)
	citizen := RequireRole(model.RoleCitizen)

	users := authed.Group("/users")
	{
		users.GET("", admin, d.Users.GetAll)
		users.GET("/filtered", admin, d.Users.GetFiltered)
		users.GET("/:id", d.Users.GetByID)
		users.PUT("/:id", admin, d.Users.Update)
		users.PATCH("/:id", d.Users.Patch)
		users.PATCH("/:id/role", admin, d.Users.UpdateRole)
		users.DELETE("/:id", d.Users.Delete)
	}

	departments := authed.Group("/departments")
	{
		departments.POST("", admin, d.Departments.Create)
		departments.GET("", d.Departments.GetAll)
		departments.GET("/filtered", d.Departments.GetFiltered)
		departments.GET("/:id", d.Departments.GetByID)
		departments.PATCH("/:id", admin, d.Departments.Update)
		departments.DELETE("/:id", admin, d.Departments.Delete)
	}

	requests := authed.Group("/requests")
	{
		requests.POST("", citizen, d.Requests.Submit)
		requests.GET("", d.Requests.GetAll)
		requests.GET("/filtered", d.Requests.GetFiltered)
		requests.GET("/details", staff, d.Requests.GetDetails)
		requests.GET("/mine", citizen, d.Requests.GetMine)
		requests.GET("/:id", d.Requests.GetByID)
		requests.PATCH("/:id/assign", admin, d.Requests.Assign)
		requests.PATCH("/:id/status", staff, d.Requests.UpdateStatus)
	}

	officers := authed.Group("/officers")
	{
		officers.GET("", d.Profiles.GetOfficers)
		officers.GET("/user/:userId", d.Profiles.GetOfficerByUser)
		officers.PATCH("/:id/assign", admin, d.Profiles.AssignOfficer)
	}

	citizens := authed.Group("/citizens")
	{
		citizens.GET("", d.Profiles.GetCitizens)
		citizens.GET("/:id", d.Profiles.GetCitizen)
		citizens.GET("/user/:userId", d.Profiles.GetCitizenByUser)
	}

	authed.GET("/admins", admin, d.Profiles.GetAdmins)

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
