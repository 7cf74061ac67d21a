package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/dgnotes/internal/worker"
	appErrors "github.com/charlesng35/dgnotes/pkg/errors"
	"github.com/charlesng35/dgnotes/pkg/response"
)

const maxControlMessageBytes = 4 << 10

// WorkerHandler exposes the worker registration to pages.
type WorkerHandler struct {
	registration *worker.Registration
}

// NewWorkerHandler constructs a worker handler.
func NewWorkerHandler(registration *worker.Registration) *WorkerHandler {
	return &WorkerHandler{registration: registration}
}

// Message dispatches a control message such as {"type":"SKIP_WAITING"} and
// returns the resulting status.
func (h *WorkerHandler) Message(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxControlMessageBytes))
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("unreadable control message"))
		return
	}

	msg, err := worker.ParseMessage(payload)
	if err != nil {
		response.Error(c, appErrors.ErrUnknownMessage.WithInternal(err))
		return
	}

	ctx := c.Request.Context()
	if err := h.registration.HandleMessage(ctx, msg); err != nil {
		switch {
		case errors.Is(err, worker.ErrUnknownMessage):
			response.Error(c, appErrors.ErrUnknownMessage.WithInternal(err))
			return
		case errors.Is(err, worker.ErrNoWaiting):
			response.Error(c, appErrors.ErrNoWaitingWorker)
			return
		case h.registration.Waiting() != nil:
			response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
			return
		}
		// activation happened; only stale generation cleanup failed
	}

	h.status(c)
}

// Status reports the active and waiting versions and the stored generations.
func (h *WorkerHandler) Status(c *gin.Context) {
	h.status(c)
}

func (h *WorkerHandler) status(c *gin.Context) {
	status, err := h.registration.Status(c.Request.Context())
	if err != nil {
		response.Error(c, appErrors.ErrStorageUnavailable.WithInternal(err))
		return
	}
	response.Success(c, http.StatusOK, status)
}
