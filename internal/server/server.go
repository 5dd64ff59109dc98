package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"monopoly/internal/dispatch"
	"monopoly/internal/game"
	"monopoly/internal/logging"
	"monopoly/internal/session"
)

// Options configures the HTTP layer.
type Options struct {
	CORSOrigins []string
}

// Server is the HTTP server.
type Server struct {
	engine     *gin.Engine
	registry   *game.Registry
	manager    *session.Manager
	dispatcher *dispatch.Dispatcher
	tokens     dispatch.Tokens
	logger     *zap.Logger
	allowAll   bool
	origins    []string
	started    time.Time
}

// New creates a server with all routes.
func New(registry *game.Registry, manager *session.Manager, dispatcher *dispatch.Dispatcher, tokens dispatch.Tokens, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:     gin.New(),
		registry:   registry,
		manager:    manager,
		dispatcher: dispatcher,
		tokens:     tokens,
		logger:     logger,
		started:    time.Now(),
	}
	for _, o := range opts.CORSOrigins {
		if o == "*" {
			s.allowAll = true
			continue
		}
		s.origins = append(s.origins, o)
	}
	if len(s.origins) == 0 {
		s.allowAll = true
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	corsCfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if s.allowAll {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.origins
	}
	s.engine.Use(gin.Recovery(), logging.RequestLogger(s.logger), cors.New(corsCfg))

	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/info", s.handleInfo)
	api.GET("/variants", s.handleListVariants)
	api.GET("/rooms", s.handleListRooms)
	api.POST("/rooms", s.handleCreateRoom)
	api.GET("/rooms/:code", s.handleGetRoom)
	api.POST("/rooms/:code/join", s.handleJoinRoom)
	api.POST("/rooms/:code/start", s.handleStartRoom)
	api.GET("/rooms/:code/snapshot", s.handleSnapshot)
	api.GET("/rooms/:code/ws", s.handleWebSocket)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type infoResponse struct {
	Name     string `json:"name"`
	Rooms    int    `json:"rooms"`
	Variants int    `json:"variants"`
	Uptime   string `json:"uptime"`
}

func (s *Server) handleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, infoResponse{
		Name:     "monopoly",
		Rooms:    s.manager.Count(),
		Variants: len(s.registry.List()),
		Uptime:   time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleListVariants(c *gin.Context) {
	c.JSON(http.StatusOK, s.registry.List())
}

func (s *Server) handleListRooms(c *gin.Context) {
	rooms := s.manager.ListPublic()
	if rooms == nil {
		rooms = []session.Info{}
	}
	c.JSON(http.StatusOK, rooms)
}

type createRoomRequest struct {
	Variant  string        `json:"variant"`
	Name     string        `json:"name"`
	Color    string        `json:"color"`
	Public   *bool         `json:"isPublic"`
	Settings game.Settings `json:"settings"`
}

type joinResponse struct {
	Code     string `json:"code"`
	PlayerID string `json:"playerId"`
	Token    string `json:"token"`
}

// handleCreateRoom creates a room and seats the caller as its host.
func (s *Server) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, game.Validationf("invalid request body"))
		return
	}
	req.Variant = strings.TrimSpace(req.Variant)
	if req.Variant == "" {
		req.Variant = "classic"
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(c, game.Validationf("name is required"))
		return
	}
	settings := req.Settings
	settings.Public = req.Public == nil || *req.Public

	ctx := c.Request.Context()
	room, err := s.manager.Create(ctx, req.Variant, settings)
	if err != nil {
		s.fail(c, err)
		return
	}
	ident, err := s.dispatcher.Join(ctx, room.Code, req.Name, req.Color)
	if err != nil {
		if rerr := s.manager.Remove(ctx, room.Code); rerr != nil {
			s.logger.Error("remove room", zap.String("room", room.Code), zap.Error(rerr))
		}
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, joinResponse{Code: room.Code, PlayerID: ident.PlayerID, Token: ident.Token})
}

func (s *Server) handleGetRoom(c *gin.Context) {
	room, ok := s.manager.Get(c.Param("code"))
	if !ok {
		writeError(c, game.NotFoundf("room not found"))
		return
	}
	c.JSON(http.StatusOK, room.Info())
}

type joinRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (s *Server) handleJoinRoom(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, game.Validationf("invalid request body"))
		return
	}
	code := c.Param("code")
	ident, err := s.dispatcher.Join(c.Request.Context(), code, req.Name, req.Color)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, joinResponse{Code: code, PlayerID: ident.PlayerID, Token: ident.Token})
}

func (s *Server) handleStartRoom(c *gin.Context) {
	code := c.Param("code")
	playerID, err := s.identify(c, code)
	if err != nil {
		s.fail(c, err)
		return
	}
	if _, err := s.dispatcher.StartGame(c.Request.Context(), code, playerID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

func (s *Server) handleSnapshot(c *gin.Context) {
	code := c.Param("code")
	playerID, err := s.identify(c, code)
	if err != nil {
		s.fail(c, err)
		return
	}
	snap, err := s.dispatcher.RequestSnapshot(c.Request.Context(), code, playerID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// identify resolves the caller from a bearer token issued for code.
func (s *Server) identify(c *gin.Context, code string) (string, error) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == "" {
		return "", game.Authorizationf("missing bearer token")
	}
	id, err := s.tokens.Verify(code, token)
	if err != nil {
		return "", game.Authorizationf("invalid token")
	}
	return id, nil
}

type errorPayload struct {
	Kind    game.Kind `json:"kind"`
	Message string    `json:"message"`
}

// fail writes err, hiding the detail of anything that is not a game error.
func (s *Server) fail(c *gin.Context, err error) {
	var gerr *game.Error
	if !errors.As(err, &gerr) {
		s.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	writeError(c, err)
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), toErrorPayload(err))
}

func toErrorPayload(err error) errorPayload {
	var gerr *game.Error
	if errors.As(err, &gerr) {
		return errorPayload{Kind: gerr.Kind, Message: gerr.Message}
	}
	return errorPayload{Kind: "internal", Message: "internal error"}
}

func statusFor(err error) int {
	switch game.KindOf(err) {
	case game.KindValidation:
		return http.StatusBadRequest
	case game.KindAuthorization:
		return http.StatusForbidden
	case game.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case game.KindStateConflict:
		return http.StatusConflict
	case game.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
