package web

import (
	"fmt"
	"log"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/piaflabs/piaf/db"
	"github.com/piaflabs/piaf/util"
	"golang.org/x/time/rate"
)

// NewRouter wires the HTTP surface over the stores. Kept separate from
// Router so tests can drive the engine without binding a port.
func NewRouter(conf *util.AppConfig, accounts *db.AccountStore, posts *db.PostStore, coord *db.Coordinator) *gin.Engine {
	g := gin.Default()
	g.Use(gzip.Gzip(gzip.DefaultCompression))

	// Global rate limiter: 10 requests per second per IP, burst of 20
	globalLimiter := NewRateLimiter(rate.Limit(10), 20)
	g.Use(RateLimitMiddleware(globalLimiter))

	// Max 1MB request body size
	g.Use(MaxBytesMiddleware(1 * 1024 * 1024))

	h := &Handlers{conf: conf, accounts: accounts, posts: posts, coord: coord}

	g.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": util.GetVersion()})
	})

	// Accounts
	g.POST("/register", h.HandleRegister)
	g.POST("/login", h.HandleLogin)
	g.GET("/u/:username", h.HandleProfile)
	g.PATCH("/u/:username", h.HandleUpdateProfile)
	g.POST("/u/:username/rename", h.HandleRenameAccount)
	g.DELETE("/u/:username", h.HandleDeleteAccount)
	g.POST("/follow", h.HandleFollow)
	g.POST("/unfollow", h.HandleUnfollow)

	// Posts
	g.GET("/timeline", h.HandleTimeline)
	g.POST("/posts", h.HandleCreatePost)
	g.GET("/posts/:id", h.HandleGetPost)
	g.DELETE("/posts/:id", h.HandleDeletePost)
	g.POST("/posts/:id/like", h.HandleToggleLike)
	g.POST("/posts/:id/reply", h.HandleAddReply)
	g.POST("/posts/:id/report", h.HandleReport)
	g.GET("/random", h.HandleRandomPost)
	g.GET("/stats", h.HandleStats)

	// RSS Feed
	g.GET("/feed", func(c *gin.Context) {
		c.Header("Content-Type", "application/xml; charset=utf-8")

		username := c.Query("username")
		rss, err := GetRSS(conf, posts, username)
		if err != nil {
			c.Render(404, render.String{Format: ""})
		} else {
			c.Render(200, render.String{Format: rss})
		}
	})

	g.GET("/feed/:id", func(c *gin.Context) {
		c.Header("Content-Type", "application/xml; charset=utf-8")

		rssItem, err := GetRSSItem(conf, posts, c.Param("id"))
		if err != nil {
			c.Render(404, render.String{Format: ""})
		} else {
			c.Render(200, render.String{Format: rssItem})
		}
	})

	return g
}

// Router starts the HTTP server and blocks until it fails.
func Router(conf *util.AppConfig, accounts *db.AccountStore, posts *db.PostStore, coord *db.Coordinator) error {
	log.Printf("Starting HTTP server on %s:%d", conf.Conf.Host, conf.Conf.HttpPort)
	g := NewRouter(conf, accounts, posts, coord)
	return g.Run(fmt.Sprintf(":%d", conf.Conf.HttpPort))
}
