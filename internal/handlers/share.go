package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/dgnotes/internal/blobstore"
	"github.com/charlesng35/dgnotes/internal/page"
	appErrors "github.com/charlesng35/dgnotes/pkg/errors"
	"github.com/charlesng35/dgnotes/pkg/response"
)

// ShareHandler lets a browser front end run the page boot sequence remotely.
type ShareHandler struct {
	app          *page.App
	triggerParam string
}

// NewShareHandler constructs a share handler. triggerParam is the query
// parameter the share route appends on success.
func NewShareHandler(app *page.App, triggerParam string) *ShareHandler {
	return &ShareHandler{app: app, triggerParam: triggerParam}
}

type collectRequest struct {
	URL string `json:"url" validate:"omitempty,max=2048"`
}

type launchRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"omitempty,max=255"`
	Data        []byte `json:"data" validate:"required"`
}

type sharedFilePayload struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Timestamp   time.Time `json:"timestamp"`
	Data        []byte    `json:"data"`
}

type bootPayload struct {
	CleanURL   string             `json:"clean_url"`
	Navigate   string             `json:"navigate,omitempty"`
	ShareError bool               `json:"share_error"`
	File       *sharedFilePayload `json:"file,omitempty"`
}

// Collect boots the page with the supplied URL, or with an import signal when
// none is given, and returns the collected file base64 encoded.
func (h *ShareHandler) Collect(c *gin.Context) {
	var req collectRequest
	if c.Request.ContentLength != 0 {
		if !bindAndValidate(c, &req) {
			return
		}
	}

	rawURL := strings.TrimSpace(req.URL)
	if rawURL == "" {
		rawURL = "/?" + url.Values{h.triggerParam: {"true"}}.Encode()
	}

	h.respond(c, h.app.Boot(c.Request.Context(), rawURL))
}

// Launch imports a file handed over directly by the launch queue.
func (h *ShareHandler) Launch(c *gin.Context) {
	var req launchRequest
	if !bindAndValidate(c, &req) {
		return
	}
	h.respond(c, h.app.Launch(c.Request.Context(), req.Name, req.ContentType, req.Data))
}

func (h *ShareHandler) respond(c *gin.Context, result page.BootResult) {
	if result.Err != nil && result.Imported == nil && !result.ShareError {
		if errors.Is(result.Err, page.ErrImportFailed) {
			response.Error(c, appErrors.ErrImportFailed.WithInternal(result.Err))
			return
		}
		if result.Navigate == "" {
			response.Error(c, appErrors.NewBadRequest("invalid url"))
			return
		}
		response.Error(c, appErrors.ErrStorageUnavailable.WithInternal(result.Err))
		return
	}

	response.Success(c, http.StatusOK, bootPayload{
		CleanURL:   result.CleanURL,
		Navigate:   result.Navigate,
		ShareError: result.ShareError,
		File:       filePayload(result.Imported),
	})
}

func filePayload(file *blobstore.PendingFile) *sharedFilePayload {
	if file == nil {
		return nil
	}
	return &sharedFilePayload{
		ID:          file.ID,
		Name:        file.Name,
		ContentType: file.ContentType,
		Size:        file.Size,
		Timestamp:   file.Timestamp,
		Data:        file.Data,
	}
}
