package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cold-outreach-go/internal/handler"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Queue     *handler.QueueHandler
	Campaigns *handler.CampaignHandler
	Emails    *handler.EmailHandler
	Replies   *handler.ReplyHandler
	Poller    *handler.PollerHandler
	Leads     *handler.LeadHandler
	Templates *handler.TemplateHandler
	Portfolio *handler.PortfolioHandler
	Events    *handler.EventsHandler
}

// NewRouter builds the HTTP surface.
func NewRouter(h Handlers, registry *prometheus.Registry) *gin.Engine {
	router := gin.Default()

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		queue := api.Group("/queue")
		{
			queue.POST("/start", h.Queue.Start)
			queue.POST("/pause", h.Queue.Pause)
			queue.POST("/resume", h.Queue.Resume)
			queue.POST("/stop", h.Queue.Stop)
			queue.GET("/status", h.Queue.Status)
		}

		campaigns := api.Group("/campaigns")
		{
			campaigns.POST("", h.Campaigns.Create)
			campaigns.GET("", h.Campaigns.List)
			campaigns.GET("/:id", h.Campaigns.Get)
			campaigns.POST("/:id/drafts", h.Campaigns.GenerateDrafts)
			campaigns.GET("/:id/emails", h.Campaigns.ListEmails)
			campaigns.POST("/:id/queue", h.Campaigns.QueueApproved)
		}

		emails := api.Group("/emails")
		{
			emails.GET("/:id", h.Emails.Get)
			emails.POST("/:id/approve", h.Emails.Approve)
		}

		replies := api.Group("/replies")
		{
			replies.GET("", h.Replies.List)
			replies.GET("/unread-count", h.Replies.UnreadCount)
			replies.POST("/:id/read", h.Replies.MarkRead)
			replies.POST("/:id/classify", h.Replies.Reclassify)
		}

		poller := api.Group("/poller")
		{
			poller.POST("/poll", h.Poller.Trigger)
			poller.GET("/status", h.Poller.Status)
		}

		leads := api.Group("/leads")
		{
			leads.POST("", h.Leads.Create)
			leads.GET("", h.Leads.List)
		}

		templates := api.Group("/templates")
		{
			templates.POST("", h.Templates.Create)
			templates.GET("", h.Templates.List)
		}

		portfolio := api.Group("/portfolio")
		{
			portfolio.POST("", h.Portfolio.Create)
			portfolio.GET("", h.Portfolio.List)
		}

		api.GET("/events", h.Events.Stream)
	}

	return router
}
