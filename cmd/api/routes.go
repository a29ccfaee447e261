package main

import (
	"github.com/gin-gonic/gin"

	"receptionist-platform/internal/httpapi"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/api/health", h.Health)
	r.POST("/api/demo-requests", h.CreateDemoRequest)

	authGroup := r.Group("/v1/auth")
	{
		authGroup.POST("/signup", h.SignUp)
		authGroup.POST("/signin", h.SignIn)
		authGroup.POST("/refresh", h.Refresh)
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		v1.POST("/auth/signout", h.SignOut)
		v1.GET("/me", h.Me)

		v1.GET("/assistant", h.GetAssistant)
		v1.PATCH("/assistant/:id", h.UpdateAssistant)
		v1.DELETE("/assistant/:id", h.DeleteAssistant)

		v1.GET("/call-logs", h.ListCallLogs)
		v1.GET("/call-logs/summary", h.SummarizeCallLogs)

		chatGroup := v1.Group("/chat/sessions")
		{
			chatGroup.POST("", h.CreateChatSession)
			chatGroup.GET("", h.ListChatSessions)
			chatGroup.GET("/:id", h.GetChatSession)
			chatGroup.DELETE("/:id", h.DeleteChatSession)
			chatGroup.POST("/:id/messages", h.AppendChatMessage)
			chatGroup.GET("/:id/messages", h.ListChatMessages)
		}

		wizardGroup := v1.Group("/wizard")
		{
			wizardGroup.POST("", h.StartWizard)
			wizardGroup.GET("", h.GetWizard)
			wizardGroup.PATCH("", h.UpdateWizard)
			wizardGroup.POST("/next", h.WizardNext)
			wizardGroup.POST("/back", h.WizardBack)
		}

		callGroup := v1.Group("/calls")
		{
			callGroup.POST("", h.StartCall)
			callGroup.GET("/:id", h.GetCall)
			callGroup.POST("/:id/end", h.EndCall)
			callGroup.POST("/:id/mute", h.MuteCall)
		}
	}
}
