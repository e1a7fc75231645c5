// Package api serves run progress and results over HTTP and websocket.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/LeNguyenAnhKhoa/vnpt-hackathon2025/internal/store"
)

// Config defines server dependencies.
type Config struct {
	DBPath         string
	AllowedOrigins []string
	SilentDB       bool
}

// Server wires HTTP handlers with the run store and progress notifier.
type Server struct {
	db             *store.Database
	allowedOrigins []string
	notifier       *ProgressNotifier
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}
	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}
	return &Server{
		db:             db,
		allowedOrigins: cfg.AllowedOrigins,
		notifier:       NewProgressNotifier(),
	}, nil
}

// Notifier exposes the progress notifier for wiring into a pipeline run.
func (s *Server) Notifier() *ProgressNotifier {
	return s.notifier
}

// Recorder exposes persistence for wiring into a pipeline run.
func (s *Server) Recorder() *store.RunRecorder {
	return store.NewRunRecorder(s.db)
}

// Close releases the database handle.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)

	api := r.Group("/api")
	{
		api.GET("/runs", s.handleListRuns)
		api.GET("/runs/:id", s.handleGetRun)
		api.GET("/runs/:id/summary", s.handleRunSummary)
		api.GET("/predictions", s.handleListPredictions)
	}
	r.GET("/ws/progress", s.handleProgressStream)

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListRuns(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = 25
	}

	rows, total, err := s.db.ListRuns(page*pageSize, pageSize)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]RunDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, RunFromModel(row))
	}
	c.JSON(http.StatusOK, RunsResponse{Items: dtos, Total: total})
}

func (s *Server) handleGetRun(c *gin.Context) {
	run, err := s.db.GetRun(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.renderError(c, http.StatusNotFound, errors.New("run not found"))
			return
		}
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, RunFromModel(*run))
}

func (s *Server) handleRunSummary(c *gin.Context) {
	runID := c.Param("id")
	counts, err := s.db.RunSummary(runID)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	summary := SummaryDTO{RunID: runID, Counts: make(map[string]int64, len(counts))}
	for _, tc := range counts {
		summary.Counts[tc.QuestionType] = tc.Count
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleListPredictions(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = 50
	}

	rows, total, err := s.db.ListPredictions(store.PredictionQuery{
		RunID:        c.Query("run_id"),
		QuestionType: c.Query("question_type"),
		Query:        c.Query("q"),
		Offset:       page * pageSize,
		Limit:        pageSize,
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]PredictionDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, PredictionFromModel(row))
	}
	c.JSON(http.StatusOK, PredictionsResponse{Items: dtos, Total: total})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func (s *Server) handleProgressStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}
	client := s.notifier.Register(conn)
	defer s.notifier.Unregister(client)

	// reads are discarded; the socket exists for server pushes
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	logrus.WithError(err).WithField("path", c.FullPath()).Warn("request failed")
	c.JSON(status, gin.H{"error": err.Error()})
}
