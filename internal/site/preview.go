package site

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"councilreader/internal/store"
)

// PreviewServer serves a generated site locally, plus the stored records
// behind it as JSON.
type PreviewServer struct {
	router  *gin.Engine
	records *store.Records
}

// NewPreviewServer creates a server for the site in dir. records may be nil,
// in which case the /api routes are not registered.
func NewPreviewServer(dir string, records *store.Records) *PreviewServer {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	s := &PreviewServer{router: router, records: records}

	if records != nil {
		api := router.Group("/api")
		{
			api.GET("/councilfiles", s.handleIndex)
			api.GET("/councilfiles/:cf", s.handleCouncilFile)
			api.GET("/meetings/:id", s.handleMeeting)
		}
	}

	files := http.FileServer(http.Dir(dir))
	router.NoRoute(gin.WrapH(files))

	return s
}

// Handler exposes the router, mainly for tests.
func (s *PreviewServer) Handler() http.Handler {
	return s.router
}

// Run serves on addr until the listener fails.
func (s *PreviewServer) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *PreviewServer) handleIndex(c *gin.Context) {
	idx, err := s.records.LoadIndex()
	if err != nil {
		abort(c, err)

		return
	}

	c.JSON(http.StatusOK, idx)
}

func (s *PreviewServer) handleCouncilFile(c *gin.Context) {
	cf, err := s.records.LoadCouncilFile(c.Param("cf"))
	if err != nil {
		abort(c, err)

		return
	}

	c.JSON(http.StatusOK, cf)
}

func (s *PreviewServer) handleMeeting(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "meeting id must be a number"})

		return
	}

	m, err := s.records.LoadMeeting(id)
	if err != nil {
		abort(c, err)

		return
	}

	c.JSON(http.StatusOK, m)
}

func abort(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})

		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
