package share

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/dgnotes/internal/blobstore"
	"github.com/charlesng35/dgnotes/pkg/logger"
	"github.com/charlesng35/dgnotes/pkg/metrics"
)

// ReceiverConfig configures the share route.
type ReceiverConfig struct {
	FieldName      string
	Policy         SelectionPolicy
	MaxUploadBytes int64
	TriggerParam   string
	ErrorParam     string
}

func (c ReceiverConfig) withDefaults() ReceiverConfig {
	if c.FieldName == "" {
		c.FieldName = DefaultFieldName
	}
	if c.Policy == "" {
		c.Policy = SelectExactThenFirst
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadMB << 20
	}
	if c.TriggerParam == "" {
		c.TriggerParam = DefaultTriggerParam
	}
	if c.ErrorParam == "" {
		c.ErrorParam = DefaultErrorParam
	}
	return c
}

// Receiver is the edge side of the pipeline. It stores a shared file and
// redirects the browser to the page with an import or error signal.
type Receiver struct {
	store blobstore.Store
	cfg   ReceiverConfig
	now   func() time.Time
	log   *zap.Logger
}

// NewReceiver builds a receiver over store.
func NewReceiver(store blobstore.Store, cfg ReceiverConfig) *Receiver {
	return &Receiver{
		store: store,
		cfg:   cfg.withDefaults(),
		now:   time.Now,
		log:   logger.WithModule("share"),
	}
}

// SuccessLocation is where the browser goes after a stored share.
func (r *Receiver) SuccessLocation() string {
	return "/?" + url.Values{r.cfg.TriggerParam: {"true"}}.Encode()
}

// ErrorLocation is where the browser goes after a failed share.
func (r *Receiver) ErrorLocation() string {
	return "/?" + url.Values{r.cfg.ErrorParam: {"true"}}.Encode()
}

// Handle answers a share submission. It never touches the network and always
// ends in a 303 redirect.
func (r *Receiver) Handle(c *gin.Context) {
	metrics.WorkerFetches.WithLabelValues("share").Inc()

	id, err := r.Receive(c.Request.Context(), c.Writer, c.Request)
	if err != nil {
		metrics.ShareIngestions.WithLabelValues("failed").Inc()
		r.log.Warn("shared file rejected", zap.Error(err))
		c.Redirect(http.StatusSeeOther, r.ErrorLocation())
		return
	}

	metrics.ShareIngestions.WithLabelValues("stored").Inc()
	r.log.Info("shared file stored", zap.Uint64("id", id))
	c.Redirect(http.StatusSeeOther, r.SuccessLocation())
}

// InterceptMarked handles POSTs carrying the share-target query marker on any
// path and passes everything else on.
func (r *Receiver) InterceptMarked(c *gin.Context) {
	if c.Request.Method == http.MethodPost && c.Request.URL.Query().Has(RouteMarker) {
		r.Handle(c)
		c.Abort()
		return
	}
	c.Next()
}

// Receive reads the multipart body, selects one file part and stores it.
func (r *Receiver) Receive(ctx context.Context, w http.ResponseWriter, req *http.Request) (uint64, error) {
	mediaType, _, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return 0, fmt.Errorf("%w: content type %q", ErrNoFile, req.Header.Get("Content-Type"))
	}

	// room for the other form fields and multipart framing
	req.Body = http.MaxBytesReader(w, req.Body, r.cfg.MaxUploadBytes+1<<20)
	file, err := r.selectPart(req)
	if err != nil {
		return 0, err
	}

	file.Timestamp = r.now().UTC()
	id, err := r.store.Put(ctx, file)
	if err != nil {
		return 0, fmt.Errorf("share: store file: %w", err)
	}
	return id, nil
}

func (r *Receiver) selectPart(req *http.Request) (blobstore.PendingFile, error) {
	reader, err := req.MultipartReader()
	if err != nil {
		return blobstore.PendingFile{}, fmt.Errorf("%w: %v", ErrNoFile, err)
	}

	var first *blobstore.PendingFile
	var skipped error
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return blobstore.PendingFile{}, fmt.Errorf("share: read multipart body: %w", err)
		}
		if part.FileName() == "" {
			part.Close()
			continue
		}

		named := part.FormName() == r.cfg.FieldName
		wanted := named || (r.cfg.Policy != SelectExact && first == nil)
		if !wanted {
			part.Close()
			continue
		}

		file, err := r.readPart(part.FileName(), part.Header.Get("Content-Type"), part)
		part.Close()
		if err != nil {
			// an oversized fallback candidate must not hide the named field
			if !named && r.cfg.Policy == SelectExactThenFirst && errors.Is(err, ErrTooLarge) {
				if skipped == nil {
					skipped = err
				}
				continue
			}
			return blobstore.PendingFile{}, err
		}
		if named && r.cfg.Policy != SelectFirst {
			return file, nil
		}
		if first == nil {
			first = &file
			if r.cfg.Policy == SelectFirst {
				return file, nil
			}
		}
	}

	if first != nil {
		return *first, nil
	}
	if skipped != nil {
		return blobstore.PendingFile{}, skipped
	}
	return blobstore.PendingFile{}, fmt.Errorf("%w: no file part named %q", ErrNoFile, r.cfg.FieldName)
}

func (r *Receiver) readPart(name, contentType string, body io.Reader) (blobstore.PendingFile, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(body, r.cfg.MaxUploadBytes+1))
	if err != nil {
		return blobstore.PendingFile{}, fmt.Errorf("share: read file part: %w", err)
	}
	if n > r.cfg.MaxUploadBytes {
		return blobstore.PendingFile{}, fmt.Errorf("%w: %q", ErrTooLarge, name)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return blobstore.PendingFile{
		Name:        name,
		ContentType: contentType,
		Size:        n,
		Data:        buf.Bytes(),
	}, nil
}
