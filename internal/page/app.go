// Package page is the application side of the offline edge: the data layer
// the page keeps in its caches and the boot sequence that picks up shared files.
package page

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/charlesng35/dgnotes/internal/blobstore"
	"github.com/charlesng35/dgnotes/internal/share"
	"github.com/charlesng35/dgnotes/pkg/logger"
)

// ViewSettings is the view that hosts the import flow.
const ViewSettings = "settings"

// ErrImportFailed wraps an importer failure for a file that was collected.
var ErrImportFailed = errors.New("page: import failed")

// Importer consumes a shared file.
type Importer interface {
	Import(ctx context.Context, file blobstore.PendingFile) error
}

// ImporterFunc adapts a function to Importer.
type ImporterFunc func(ctx context.Context, file blobstore.PendingFile) error

func (f ImporterFunc) Import(ctx context.Context, file blobstore.PendingFile) error {
	return f(ctx, file)
}

// LogImporter records the file's metadata and nothing else.
type LogImporter struct {
	Log *zap.Logger
}

func (l LogImporter) Import(_ context.Context, file blobstore.PendingFile) error {
	log := l.Log
	if log == nil {
		log = logger.WithModule("page")
	}
	log.Info("shared file ready for import",
		zap.String("name", file.Name),
		zap.String("content_type", file.ContentType),
		zap.Int64("size", file.Size),
		zap.Time("shared_at", file.Timestamp),
	)
	return nil
}

// BootResult tells the page what to show after boot.
type BootResult struct {
	CleanURL   string                 `json:"clean_url"`
	Navigate   string                 `json:"navigate,omitempty"`
	Imported   *blobstore.PendingFile `json:"imported,omitempty"`
	ShareError bool                   `json:"share_error"`
	Err        error                  `json:"-"`
}

// App runs the page's boot sequence.
type App struct {
	collector *share.Collector
	importer  Importer
	log       *zap.Logger
}

// NewApp wires the collector to an importer. A nil importer logs files.
func NewApp(collector *share.Collector, importer Importer) *App {
	log := logger.WithModule("page")
	if importer == nil {
		importer = LogImporter{Log: log}
	}
	return &App{collector: collector, importer: importer, log: log}
}

// Boot handles the URL the page was opened with: it strips share signals,
// collects the pending file on an import signal and hands it to the importer.
func (a *App) Boot(ctx context.Context, rawURL string) BootResult {
	return a.finish(ctx, a.collector.Consume(ctx, rawURL))
}

// Launch imports a file handed to the app directly, without the blob store.
func (a *App) Launch(ctx context.Context, name, contentType string, data []byte) BootResult {
	return a.finish(ctx, a.collector.Launch(name, contentType, data))
}

func (a *App) finish(ctx context.Context, out share.Outcome) BootResult {
	result := BootResult{CleanURL: out.CleanURL, Err: out.Err}

	switch out.Signal {
	case share.SignalError:
		result.ShareError = true
		return result
	case share.SignalImport, share.SignalLaunch:
		result.Navigate = ViewSettings
	default:
		return result
	}

	if out.Err != nil {
		a.log.Warn("shared file unavailable", zap.Stringer("signal", out.Signal), zap.Error(out.Err))
		return result
	}
	if out.File == nil {
		return result
	}
	if err := a.importer.Import(ctx, *out.File); err != nil {
		a.log.Warn("shared file import failed", zap.String("name", out.File.Name), zap.Error(err))
		result.Err = fmt.Errorf("%w: %w", ErrImportFailed, err)
		return result
	}
	result.Imported = out.File
	return result
}
