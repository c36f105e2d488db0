package report

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/temirov/distaudit/internal/audit"
)

const (
	progressBarWidthConstant           = 40
	progressThrottleConstant           = 100 * time.Millisecond
	observerWriteFailedMessageConstant = "Unable to write audit progress"
	versionLogFieldConstant            = "version"
)

// LineObserver prints each result as soon as its version has been audited.
type LineObserver struct {
	writer   io.Writer
	renderer TextRenderer
	logger   *zap.Logger
}

// NewLineObserver constructs a LineObserver writing to writer.
func NewLineObserver(writer io.Writer, renderer TextRenderer, logger *zap.Logger) *LineObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LineObserver{writer: writer, renderer: renderer, logger: logger}
}

// AuditStarted implements audit.ResultObserver.
func (observer *LineObserver) AuditStarted(string, []string) {}

// VersionAudited prints result.
func (observer *LineObserver) VersionAudited(result audit.Result) {
	if renderError := observer.renderer.RenderResult(observer.writer, result); renderError != nil {
		observer.logger.Warn(observerWriteFailedMessageConstant, zap.String(versionLogFieldConstant, result.Version), zap.Error(renderError))
	}
}

// AuditFinished implements audit.ResultObserver.
func (observer *LineObserver) AuditFinished() {}

// ProgressObserver renders a progress bar advancing once per audited version.
type ProgressObserver struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
}

// NewProgressObserver constructs a ProgressObserver writing to writer.
func NewProgressObserver(writer io.Writer) *ProgressObserver {
	return &ProgressObserver{writer: writer}
}

// AuditStarted sizes the bar to the number of versions.
func (observer *ProgressObserver) AuditStarted(packageName string, versions []string) {
	observer.bar = progressbar.NewOptions(len(versions),
		progressbar.OptionSetWriter(observer.writer),
		progressbar.OptionSetDescription(packageName),
		progressbar.OptionSetWidth(progressBarWidthConstant),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(progressThrottleConstant),
	)
}

// VersionAudited advances the bar.
func (observer *ProgressObserver) VersionAudited(result audit.Result) {
	if observer.bar == nil {
		return
	}
	observer.bar.Describe(result.Version)
	_ = observer.bar.Add(1)
}

// AuditFinished completes the bar and ends its line.
func (observer *ProgressObserver) AuditFinished() {
	if observer.bar == nil {
		return
	}
	_ = observer.bar.Finish()
	_, _ = io.WriteString(observer.writer, newlineConstant)
	observer.bar = nil
}
