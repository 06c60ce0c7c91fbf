package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"jamroom/internal/adapters/signal"
	"jamroom/internal/app"
	"jamroom/internal/config"
	"jamroom/internal/upstream"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// Clients groups the external collaborators the REST surface talks to.
type Clients struct {
	Search *upstream.SearchClient
	Lyrics *upstream.LyricsClient
	Titles *upstream.TitleClient
}

func SetupRouter(ctx context.Context, cfg *config.Config, orch *app.Orchestrator, clients Clients) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("JamroomSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ctrl := signal.NewRoomWSController(orch)

	api := r.Group("/api")

	api.GET("/ws/room", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws room endpoint hit")
		ctrl.HandleRoom(ctx, c)
	})

	api.GET("/videos", func(c *gin.Context) {
		query := c.Query("q")
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing query"})
			return
		}
		results, err := clients.Search.Find(c.Request.Context(), query)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "search unavailable"})
			return
		}
		c.JSON(http.StatusOK, results)
	})

	api.GET("/lyrics", func(c *gin.Context) {
		rawTitle := c.Query("title")
		rawAuthor := c.Query("author")
		if rawTitle == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing title"})
			return
		}

		// Best effort: a failed extraction falls back to the raw title
		// rather than failing the lookup.
		track, err := clients.Titles.Extract(c.Request.Context(), rawTitle, rawAuthor)
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("title extraction failed, using raw title")
			track = rawTitle
		}

		record, err := clients.Lyrics.Find(c.Request.Context(), track, rawAuthor)
		if err != nil {
			if errors.Is(err, upstream.ErrUnavailable) {
				c.JSON(http.StatusBadGateway, gin.H{"error": "lyrics unavailable"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lyrics lookup failed"})
			return
		}
		if record == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no lyrics found"})
			return
		}
		c.JSON(http.StatusOK, record)
	})

	return r
}
