package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// New returns the gin engine serving the monitor
func New(monitor *Monitor) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	h := &handlers{monitor: monitor}
	r.GET("/healthz", h.health)
	r.GET("/status", h.status)
	r.GET("/pose/:experiment", h.pose)
	r.GET("/rewards/:experiment", h.rewards)
	return r
}

type handlers struct {
	monitor *Monitor
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *handlers) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"uptime":      h.monitor.Uptime().Round(time.Second).String(),
		"experiments": h.monitor.Statuses(),
	})
}

func (h *handlers) pose(c *gin.Context) {
	pose, ok := h.monitor.Pose(c.Param("experiment"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pose for experiment"})
		return
	}
	c.JSON(http.StatusOK, pose)
}

func (h *handlers) rewards(c *gin.Context) {
	rewards, ok := h.monitor.Rewards(c.Param("experiment"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown experiment"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}

// Serve listens on addr until ctx is done, then shuts the server down
func Serve(ctx context.Context, addr string, monitor *Monitor, logger log.Logger) error {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	server := &http.Server{
		Addr:    addr,
		Handler: New(monitor),
	}

	errCh := make(chan error, 1)
	go func() {
		level.Info(logger).Log("msg", "status server listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
