// Package workflow drives one user's batch through upload, review and
// submission. All state lives in a Workflow value; every transition goes
// through its methods so the invariants hold in one place.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dharsanguruparan/omnigo/internal/metrics"
	"github.com/dharsanguruparan/omnigo/internal/model"
	"github.com/dharsanguruparan/omnigo/internal/review"
	"github.com/dharsanguruparan/omnigo/internal/simulate"
	"github.com/dharsanguruparan/omnigo/internal/staging"
	"github.com/dharsanguruparan/omnigo/internal/summary"
)

// Stage is the workflow's position in the upload → review → success loop.
type Stage string

const (
	StageUpload  Stage = "upload"
	StageReview  Stage = "review"
	StageSuccess Stage = "success"
)

// View is the sub-screen shown during the upload stage.
type View string

const (
	ViewMain    View = "main"
	ViewStaging View = "staging"
)

var (
	ErrStage         = errors.New("action not allowed in current stage")
	ErrSubmitBlocked = errors.New("submission blocked")
)

// Submission is handed to the Recorder when a batch is submitted.
type Submission struct {
	SessionID string
	Summary   model.SubmissionSummary
	Approved  []model.ProcessedFile
}

// Recorder persists a submitted batch and returns the archive job id.
type Recorder interface {
	Record(ctx context.Context, sub Submission) (string, error)
}

// Options wires a Workflow to its collaborators.
type Options struct {
	SessionID    string
	AllowLists   map[string][]string
	DefaultEntry string
	WarningTTL   time.Duration
	Uploader     *simulate.Uploader
	Classifier   *simulate.Classifier
	Reporter     *summary.Reporter
	Recorder     Recorder
	Now          func() time.Time
}

// Snapshot is an immutable copy of the workflow state.
type Snapshot struct {
	SessionID   string                   `json:"sessionId"`
	Stage       Stage                    `json:"stage"`
	View        View                     `json:"view"`
	Files       []model.StagedFile       `json:"files"`
	Uploading   bool                     `json:"uploading"`
	Uploaded    bool                     `json:"uploaded"`
	Warning     string                   `json:"warning,omitempty"`
	Processed   []model.ProcessedFile    `json:"processed,omitempty"`
	Groups      []review.Group           `json:"groups,omitempty"`
	Counts      *review.Counts           `json:"counts,omitempty"`
	CanSubmit   bool                     `json:"canSubmit"`
	SubmitLabel string                   `json:"submitLabel,omitempty"`
	Summary     *model.SubmissionSummary `json:"summary,omitempty"`
	UpdatedAt   time.Time                `json:"updatedAt"`
}

// Workflow is safe for concurrent use. Upload timers call back into it from
// their own goroutines; each callback carries the generation it was started
// under and is dropped if the workflow has been reset since.
type Workflow struct {
	mu   sync.Mutex
	opts Options
	log  *slog.Logger

	stage      Stage
	view       View
	collector  *staging.Collector
	uploading  bool
	uploaded   bool
	gate       *review.Gate
	summary    *model.SubmissionSummary
	generation uint64
	cancel     context.CancelFunc
	updatedAt  time.Time
}

// New builds a workflow at the start of the upload stage.
func New(opts Options) *Workflow {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	w := &Workflow{
		opts:      opts,
		log:       slog.Default().With("session_id", opts.SessionID),
		stage:     StageUpload,
		view:      ViewMain,
		collector: staging.NewCollector(opts.AllowLists, opts.WarningTTL, opts.Now),
	}
	w.touch()
	return w
}

func (w *Workflow) touch() { w.updatedAt = w.opts.Now() }

func stageError(action string, stage Stage) error {
	return fmt.Errorf("%w: cannot %s during %s", ErrStage, action, stage)
}

// Stage adds files to the staging set through entry, or the default entry
// point when entry is empty.
func (w *Workflow) Stage(entry string, files []staging.Incoming, replaceExisting bool) (staging.AddResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stage != StageUpload {
		return staging.AddResult{}, stageError("stage files", w.stage)
	}
	if w.uploading {
		return staging.AddResult{}, stageError("stage files while uploading", w.stage)
	}
	if entry == "" {
		entry = w.opts.DefaultEntry
	}
	res, err := w.collector.Add(entry, files, replaceExisting)
	if err != nil {
		if errors.Is(err, staging.ErrUnsupportedType) {
			metrics.FilesRefused.WithLabelValues("unsupported_type").Add(float64(len(files)))
		}
		return res, err
	}
	metrics.FilesStaged.WithLabelValues(entry).Add(float64(len(res.Added)))
	if n := len(res.Duplicates); n > 0 {
		metrics.FilesRefused.WithLabelValues("duplicate").Add(float64(n))
	}
	if len(res.Added) > 0 {
		w.uploaded = false
	}
	if w.collector.Len() > 0 {
		w.view = ViewStaging
	}
	w.touch()
	w.log.Debug("files staged", "entry", entry, "added", len(res.Added), "duplicates", len(res.Duplicates))
	return res, nil
}

// Remove deletes a staged file. Emptying the set returns to the main view
// and abandons any upload in flight.
func (w *Workflow) Remove(id int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stage != StageUpload {
		return stageError("remove files", w.stage)
	}
	empty, err := w.collector.Remove(id)
	if err != nil {
		return err
	}
	if empty {
		w.stopTimers()
		w.uploading = false
		w.uploaded = false
		w.view = ViewMain
	}
	w.touch()
	return nil
}

// DismissWarning clears the duplicate warning.
func (w *Workflow) DismissWarning() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.collector.Warning() == "" {
		return
	}
	w.collector.DismissWarning()
	w.touch()
}

// StartUpload moves every pending file to uploading and starts its timer.
// The timers outlive the caller's request, so they run under a context owned
// by the workflow and cancelled by Reset and Close.
func (w *Workflow) StartUpload() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stage != StageUpload {
		return stageError("upload", w.stage)
	}
	if w.uploading {
		return stageError("start a second upload", w.stage)
	}
	pending := w.collector.WithStatus(model.UploadPending)
	if len(pending) == 0 {
		return fmt.Errorf("%w: no pending files to upload", ErrStage)
	}
	ids := make([]int64, len(pending))
	for i, f := range pending {
		ids[i] = f.ID
		_ = w.collector.SetStatus(f.ID, model.UploadUploading)
	}
	w.uploading = true
	w.uploaded = false

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	gen := w.generation
	attempts := w.opts.Uploader.Plan(ids)
	w.opts.Uploader.Run(ctx, attempts,
		func(a simulate.Attempt) { w.applyUpload(gen, a) },
		func() { w.finishUpload(gen) },
	)
	w.touch()
	w.log.Info("upload started", "files", len(ids))
	return nil
}

func (w *Workflow) applyUpload(gen uint64, a simulate.Attempt) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.generation {
		return
	}
	// The file may have been removed while its timer was running.
	if err := w.collector.SetStatus(a.FileID, a.Status); err != nil {
		return
	}
	metrics.Uploads.WithLabelValues(string(a.Status)).Inc()
	w.touch()
}

func (w *Workflow) finishUpload(gen uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.generation {
		return
	}
	w.uploading = false
	w.uploaded = true
	w.touch()
	w.log.Info("upload finished",
		"completed", len(w.collector.WithStatus(model.UploadCompleted)),
		"failed", len(w.collector.WithStatus(model.UploadError)),
	)
}

// Process classifies every completed upload and opens the review stage.
// Failed uploads are left behind.
func (w *Workflow) Process() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stage != StageUpload {
		return stageError("process", w.stage)
	}
	if w.uploading || !w.uploaded {
		return fmt.Errorf("%w: upload has not finished", ErrStage)
	}
	completed := w.collector.WithStatus(model.UploadCompleted)
	if len(completed) == 0 {
		return fmt.Errorf("%w: no completed uploads to process", ErrStage)
	}
	w.gate = review.NewGate(w.opts.Classifier.Classify(completed))
	w.stage = StageReview
	w.touch()
	counts := w.gate.Counts()
	w.log.Info("files processed", "files", len(completed), "auto_rejected", counts.Rejected)
	return nil
}

// Approve approves one processed file.
func (w *Workflow) Approve(id string) error {
	return w.decide("approve", func(g *review.Gate) error { return g.Approve(id) })
}

// Reject rejects one processed file.
func (w *Workflow) Reject(id string) error {
	return w.decide("reject", func(g *review.Gate) error { return g.Reject(id) })
}

// ApproveAll approves every unlocked file routed to ch.
func (w *Workflow) ApproveAll(ch model.Channel) error {
	return w.decide("approve", func(g *review.Gate) error {
		_, err := g.ApproveAll(ch)
		return err
	})
}

// RejectAll rejects every unlocked file routed to ch.
func (w *Workflow) RejectAll(ch model.Channel) error {
	return w.decide("reject", func(g *review.Gate) error {
		_, err := g.RejectAll(ch)
		return err
	})
}

func (w *Workflow) decide(decision string, fn func(*review.Gate) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stage != StageReview {
		return stageError(decision, w.stage)
	}
	if err := fn(w.gate); err != nil {
		return err
	}
	metrics.ReviewDecisions.WithLabelValues(decision).Inc()
	w.touch()
	return nil
}

// Submit closes the review. It is refused while any file is pending or when
// nothing is approved; the error carries the same label the submit action
// shows.
func (w *Workflow) Submit(ctx context.Context) (model.SubmissionSummary, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stage != StageReview {
		return model.SubmissionSummary{}, stageError("submit", w.stage)
	}
	if !w.gate.CanSubmit() {
		return model.SubmissionSummary{}, fmt.Errorf("%w: %s", ErrSubmitBlocked, w.gate.SubmitLabel())
	}
	files := w.gate.Files()
	sum := w.opts.Reporter.Summarize(files)
	if w.opts.Recorder != nil {
		var approved []model.ProcessedFile
		for _, f := range files {
			if f.Status == model.ReviewApproved {
				approved = append(approved, f)
			}
		}
		jobID, err := w.opts.Recorder.Record(ctx, Submission{
			SessionID: w.opts.SessionID,
			Summary:   sum,
			Approved:  approved,
		})
		if err != nil {
			return model.SubmissionSummary{}, fmt.Errorf("record submission: %w", err)
		}
		sum.JobID = jobID
	}
	w.summary = &sum
	w.stage = StageSuccess
	metrics.Submissions.Inc()
	w.touch()
	w.log.Info("batch submitted", "job_id", sum.JobID, "approved", sum.EmailFiles+sum.PostFiles+sum.KivraFiles, "rejected", sum.RejectedFiles)
	return sum, nil
}

// CancelReview discards the processed files and returns to the upload stage
// with the staged files intact.
func (w *Workflow) CancelReview() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stage != StageReview {
		return stageError("cancel review", w.stage)
	}
	w.gate = nil
	w.stage = StageUpload
	w.touch()
	return nil
}

// Reset abandons everything and starts a fresh batch. It is valid from any
// stage and is how the success stage loops back to upload.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopTimers()
	w.collector.Clear()
	w.uploading = false
	w.uploaded = false
	w.gate = nil
	w.summary = nil
	w.stage = StageUpload
	w.view = ViewMain
	w.touch()
}

// Close stops any running timers. The workflow must not be used afterwards.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopTimers()
}

// stopTimers cancels in-flight upload timers and invalidates their callbacks.
// Must be called with w.mu held.
func (w *Workflow) stopTimers() {
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.generation++
}

// ProcessedFile returns one processed file of the current review.
func (w *Workflow) ProcessedFile(id string) (model.ProcessedFile, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gate == nil {
		return model.ProcessedFile{}, fmt.Errorf("%w: %s", review.ErrNotFound, id)
	}
	return w.gate.Get(id)
}

// UpdatedAt reports the time of the last transition.
func (w *Workflow) UpdatedAt() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.updatedAt
}

// Snapshot copies the current state.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Snapshot{
		SessionID: w.opts.SessionID,
		Stage:     w.stage,
		View:      w.view,
		Files:     w.collector.Files(),
		Uploading: w.uploading,
		Uploaded:  w.uploaded,
		Warning:   w.collector.Warning(),
		UpdatedAt: w.updatedAt,
	}
	if s.Files == nil {
		s.Files = []model.StagedFile{}
	}
	if w.gate != nil {
		counts := w.gate.Counts()
		s.Processed = w.gate.Files()
		s.Groups = w.gate.Groups()
		s.Counts = &counts
		s.CanSubmit = w.gate.CanSubmit()
		s.SubmitLabel = w.gate.SubmitLabel()
	}
	if w.summary != nil {
		sum := *w.summary
		s.Summary = &sum
	}
	return s
}
