package worker

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/dgnotes/pkg/errors"
	"github.com/charlesng35/dgnotes/pkg/logger"
	"github.com/charlesng35/dgnotes/pkg/metrics"
	"github.com/charlesng35/dgnotes/pkg/response"
)

// Handler applies the network-first-then-cache policy to intercepted requests.
type Handler struct {
	network     Network
	generations GenerationStore
	log         *zap.Logger
}

// NewHandler builds the fetch handler.
func NewHandler(network Network, generations GenerationStore) *Handler {
	return &Handler{
		network:     network,
		generations: generations,
		log:         logger.WithModule("worker"),
	}
}

// Fetch forwards the request to the network. Any response the network
// produces is relayed unmodified, error statuses included. Only a transport
// failure falls back to the cache generations.
func (h *Handler) Fetch(c *gin.Context) {
	req := c.Request

	resp, err := h.network.Do(req)
	if err == nil {
		defer resp.Body.Close()
		metrics.WorkerFetches.WithLabelValues("network").Inc()
		relay(c, resp)
		return
	}

	h.log.Debug("network request failed", zap.String("path", req.URL.Path), zap.Error(err))

	if cacheable(req) {
		stored, ok, matchErr := h.generations.Match(req.Context(), req)
		if matchErr != nil {
			h.log.Warn("cache lookup failed", zap.String("path", req.URL.Path), zap.Error(matchErr))
		}
		if ok {
			metrics.WorkerFetches.WithLabelValues("cache_fallback").Inc()
			resp := stored.ToHTTP(req)
			defer resp.Body.Close()
			relay(c, resp)
			return
		}
	}

	metrics.WorkerFetches.WithLabelValues("failed").Inc()
	response.Error(c, errors.ErrOffline.WithInternal(err))
}

func relay(c *gin.Context, resp *http.Response) {
	header := c.Writer.Header()
	for name, values := range resp.Header {
		for _, value := range values {
			header.Add(name, value)
		}
	}
	stripHopHeaders(header)
	c.Status(resp.StatusCode)
	c.Writer.WriteHeaderNow()

	if c.Request.Method == http.MethodHead {
		return
	}
	_, _ = io.Copy(c.Writer, resp.Body)
}
