package api

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/tomw/arc-ci-ranker/internal/arc"
	"github.com/tomw/arc-ci-ranker/internal/config"
	"github.com/tomw/arc-ci-ranker/internal/db"
	"github.com/tomw/arc-ci-ranker/internal/export"
	"github.com/tomw/arc-ci-ranker/internal/rank"
)

// Server exposes the ranking query interface over a loaded dataset. The
// dataset is an explicitly constructed immutable object; it is only
// replaced wholesale when an admin recrawl completes.
type Server struct {
	Echo  *echo.Echo
	cfg   config.Config
	store *db.Store // optional; nil when no database is configured

	dataMu sync.RWMutex
	data   *rank.Dataset

	adminSecret string

	jobMu      sync.Mutex
	runningJob *backgroundJob
}

type backgroundJob struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"` // running, completed, failed
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at,omitempty"`
	Result    any                `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	Cancel    context.CancelFunc `json:"-"`
}

func NewServer(cfg config.Config, data *rank.Dataset, store *db.Store) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	if len(cfg.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Admin-Secret"},
		}))
	}

	s := &Server{
		Echo:        e,
		cfg:         cfg,
		store:       store,
		data:        data,
		adminSecret: cfg.AdminSecret,
	}

	if s.adminSecret == "" {
		buf := make([]byte, 48)
		if _, err := rand.Read(buf); err == nil {
			s.adminSecret = base64.RawURLEncoding.EncodeToString(buf)
			log.Print("admin secret is not set; using ephemeral in-memory fallback secret")
		}
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)

	api := s.Echo.Group("/api/v1")
	api.GET("/for_codes", s.handleForCodes)
	api.GET("/ranked_cis", s.handleRankedCIs)
	api.GET("/ci_detail/:name", s.handleCIDetail)

	admin := api.Group("/admin")
	admin.Use(s.adminMiddleware)
	admin.POST("/crawl", s.handleCrawl)
	admin.GET("/job/:id", s.handleJobStatus)
}

func (s *Server) dataset() *rank.Dataset {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	return s.data
}

func (s *Server) setDataset(d *rank.Dataset) {
	s.dataMu.Lock()
	s.data = d
	s.dataMu.Unlock()
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleForCodes(c echo.Context) error {
	return c.JSON(http.StatusOK, s.dataset().CodeOptions())
}

func (s *Server) handleRankedCIs(c echo.Context) error {
	selectedCodes := c.QueryParams()["selected_codes"]
	selectedPrefixes := c.QueryParams()["selected_prefix_codes"]

	topK := s.cfg.TopK
	if raw := strings.TrimSpace(c.QueryParam("top_k")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			topK = parsed
		}
	}

	return c.JSON(http.StatusOK, s.dataset().Rank(selectedCodes, selectedPrefixes, topK))
}

func (s *Server) handleCIDetail(c echo.Context) error {
	name := c.Param("name")
	if name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "investigator name required"})
	}

	selectedCodes := c.QueryParams()["selected_codes"]
	selectedPrefixes := c.QueryParams()["selected_prefix_codes"]

	return c.JSON(http.StatusOK, s.dataset().Detail(name, selectedCodes, selectedPrefixes))
}

// handleCrawl starts a background recrawl. Returns 202 with a job id to
// poll; on success the exports are rewritten, the database (if configured)
// is updated, and the in-memory dataset is swapped.
func (s *Server) handleCrawl(c echo.Context) error {
	s.jobMu.Lock()
	if s.runningJob != nil && s.runningJob.Status == "running" {
		job := s.runningJob
		s.jobMu.Unlock()
		return c.JSON(http.StatusConflict, map[string]any{
			"error":  "A crawl job is already running",
			"job_id": job.ID,
		})
	}

	// context.WithoutCancel detaches from the HTTP lifecycle; the crawl
	// gets its own generous timeout.
	jobCtx, jobCancel := context.WithTimeout(
		context.WithoutCancel(c.Request().Context()), 2*time.Hour,
	)

	jobID := uuid.New().String()[:8]
	job := &backgroundJob{
		ID:        jobID,
		Status:    "running",
		StartedAt: time.Now(),
		Cancel:    jobCancel,
	}
	s.runningJob = job
	s.jobMu.Unlock()

	go func() {
		defer jobCancel()

		crawler := &arc.Crawler{
			Client: arc.NewClient(s.cfg.Crawl.BaseURL),
			Discovery: arc.DiscoveryOptions{
				Scheme:   s.cfg.Crawl.Scheme,
				PageSize: s.cfg.Crawl.PageSize,
				MaxPages: s.cfg.Crawl.MaxPages,
				YearFrom: s.cfg.Crawl.YearFrom,
				YearTo:   s.cfg.Crawl.YearTo,
			},
			Sleep: s.cfg.Crawl.Sleep(),
		}

		records, err := crawler.Run(jobCtx)
		if err != nil {
			s.finishJob(job, nil, err)
			log.Printf("[crawl-job %s] failed: %v", jobID, err)
			return
		}

		rows := export.Rows(records)
		result := map[string]any{"records": len(records)}

		if s.cfg.DataCSV != "" {
			if err := export.WriteCSVFile(s.cfg.DataCSV, rows); err != nil {
				s.finishJob(job, nil, err)
				log.Printf("[crawl-job %s] export failed: %v", jobID, err)
				return
			}
			result["csv"] = s.cfg.DataCSV
		}

		if s.store != nil {
			saved, err := s.store.UpsertGrants(jobCtx, records)
			if err != nil {
				s.finishJob(job, nil, err)
				log.Printf("[crawl-job %s] persist failed: %v", jobID, err)
				return
			}
			result["saved"] = saved
		}

		s.setDataset(rank.NewDataset(rows))
		s.finishJob(job, result, nil)
		log.Printf("[crawl-job %s] completed: %d records", jobID, len(records))
	}()

	return c.JSON(http.StatusAccepted, map[string]any{
		"message": "Crawl job started",
		"job_id":  jobID,
		"poll":    fmt.Sprintf("/api/v1/admin/job/%s", jobID),
	})
}

func (s *Server) finishJob(job *backgroundJob, result any, err error) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	job.EndedAt = time.Now()
	if err != nil {
		job.Status = "failed"
		job.Error = err.Error()
		return
	}
	job.Status = "completed"
	job.Result = result
}

func (s *Server) handleJobStatus(c echo.Context) error {
	queried := c.Param("id")
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	job := s.runningJob
	if job == nil || job.ID != queried {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}

	resp := map[string]any{
		"id":         job.ID,
		"status":     job.Status,
		"started_at": job.StartedAt,
	}
	if !job.EndedAt.IsZero() {
		resp["ended_at"] = job.EndedAt
		resp["duration"] = job.EndedAt.Sub(job.StartedAt).String()
	}
	if job.Result != nil {
		resp["result"] = job.Result
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.adminSecret == "" {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server admin configuration error"})
		}

		authHeader := c.Request().Header.Get("Authorization")
		adminHeader := c.Request().Header.Get("X-Admin-Secret")

		if adminHeader == s.adminSecret {
			return next(c)
		}
		if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
			if authHeader[7:] == s.adminSecret {
				return next(c)
			}
		}

		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized admin access"})
	}
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}
