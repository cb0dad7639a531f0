package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/curaline/consult/internal/app"
	"github.com/curaline/consult/internal/config"
	"github.com/curaline/consult/internal/core"
	"github.com/curaline/consult/internal/domain"
)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware pins a stable per-browser token; it doubles as
// the default local participant id when the identity provider does not
// supply one explicitly.
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

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func SetupRouter(cfg *config.Config, mgr *app.Manager) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("ConsultSessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// POST /api/sessions/:id/join — establish the live encounter
	api.POST("/sessions/:id/join", func(c *gin.Context) {
		var req struct {
			ParticipantID string `json:"participantId"`
			SubjectID     string `json:"subjectId"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		if req.ParticipantID == "" {
			req.ParticipantID = c.GetString("client_token")
		}

		sctx := domain.SessionContext{
			SessionID:          domain.SessionID(c.Param("id")),
			LocalParticipantID: domain.ParticipantID(req.ParticipantID),
			SubjectID:          req.SubjectID,
			Credential:         bearerToken(c),
		}

		ctrl, err := mgr.Join(c.Request.Context(), sctx)
		if err != nil {
			var je *core.JoinError
			switch {
			case errors.As(err, &je):
				log.Warn().Err(err).Str("module", "adapters.http").Str("session", string(sctx.SessionID)).Msg("join failed")
				c.JSON(http.StatusBadGateway, gin.H{"error": "could not start the visit", "stage": string(je.Stage)})
			case errors.Is(err, domain.ErrSessionNotIdle):
				c.JSON(http.StatusConflict, gin.H{"error": "session already joined"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, ctrl.GetSnapshot())
	})

	// GET /api/sessions/:id — state, roster, chat, captions
	api.GET("/sessions/:id", func(c *gin.Context) {
		ctrl, ok := mgr.Get(domain.SessionID(c.Param("id")))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no such session"})
			return
		}
		c.JSON(http.StatusOK, ctrl.GetSnapshot())
	})

	// POST /api/sessions/:id/mute — toggle microphone
	api.POST("/sessions/:id/mute", func(c *gin.Context) {
		withController(c, mgr, func(ctrl *app.Controller) {
			muted, err := ctrl.ToggleMute()
			if err != nil {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"muted": muted})
		})
	})

	// POST /api/sessions/:id/video — toggle camera
	api.POST("/sessions/:id/video", func(c *gin.Context) {
		withController(c, mgr, func(ctrl *app.Controller) {
			on, err := ctrl.ToggleVideo()
			if err != nil {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"videoOn": on})
		})
	})

	// POST /api/sessions/:id/chat — author a message
	api.POST("/sessions/:id/chat", func(c *gin.Context) {
		var req struct {
			Text string `json:"text"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		withController(c, mgr, func(ctrl *app.Controller) {
			msg, err := ctrl.SendChat(req.Text)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, msg)
		})
	})

	// POST /api/sessions/:id/transcript/save — flush to summarizer
	api.POST("/sessions/:id/transcript/save", func(c *gin.Context) {
		withController(c, mgr, func(ctrl *app.Controller) {
			if err := ctrl.SaveTranscript(c.Request.Context()); err != nil {
				c.JSON(http.StatusBadGateway, gin.H{"error": "transcript save failed"})
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"status": "saved"})
		})
	})

	// DELETE /api/sessions/:id — exit the encounter
	api.DELETE("/sessions/:id", func(c *gin.Context) {
		if err := mgr.Exit(c.Request.Context(), domain.SessionID(c.Param("id"))); err != nil {
			if errors.Is(err, domain.ErrSessionClosed) {
				c.Status(http.StatusNoContent)
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

func withController(c *gin.Context, mgr *app.Manager, fn func(*app.Controller)) {
	ctrl, ok := mgr.Get(domain.SessionID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such session"})
		return
	}
	fn(ctrl)
}
