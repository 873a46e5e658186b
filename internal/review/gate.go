// Package review implements the approval gate that sits between
// classification and submission.
package review

import (
	"errors"
	"fmt"

	"github.com/dharsanguruparan/omnigo/internal/model"
)

var (
	ErrNotFound       = errors.New("processed file not found")
	ErrImmutable      = errors.New("file failed validation and cannot be approved")
	ErrUnknownChannel = errors.New("unknown distribution channel")
)

// Labels shown on the submit action.
const (
	LabelSubmit     = "Submit"
	LabelReviewAll  = "All files must be reviewed"
	LabelApproveOne = "Approve at least one file"
	ErrorGroup      = "error"
)

// Group is the review screen's bucket of files sharing a channel. Files that
// failed validation are collected in their own group.
type Group struct {
	Name  string                `json:"name"`
	Files []model.ProcessedFile `json:"files"`
}

// Counts tallies review decisions.
type Counts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// Gate owns the processed files during review.
type Gate struct {
	files []model.ProcessedFile
	index map[string]int
}

// NewGate takes ownership of files. A file that failed validation is forced
// to rejected regardless of the status it arrived with.
func NewGate(files []model.ProcessedFile) *Gate {
	g := &Gate{
		files: append([]model.ProcessedFile(nil), files...),
		index: make(map[string]int, len(files)),
	}
	for i := range g.files {
		if g.files[i].Locked() {
			g.files[i].Status = model.ReviewRejected
		}
		g.index[g.files[i].ID] = i
	}
	return g
}

// Approve marks one file approved.
func (g *Gate) Approve(id string) error {
	f, err := g.lookup(id)
	if err != nil {
		return err
	}
	if f.Locked() {
		return fmt.Errorf("%w: %s", ErrImmutable, id)
	}
	f.Status = model.ReviewApproved
	return nil
}

// Reject marks one file rejected. Rejecting a locked file is a no-op.
func (g *Gate) Reject(id string) error {
	f, err := g.lookup(id)
	if err != nil {
		return err
	}
	f.Status = model.ReviewRejected
	return nil
}

// ApproveAll approves every unlocked file routed to ch and returns how many
// files it touched.
func (g *Gate) ApproveAll(ch model.Channel) (int, error) {
	return g.setChannel(ch, model.ReviewApproved)
}

// RejectAll rejects every unlocked file routed to ch.
func (g *Gate) RejectAll(ch model.Channel) (int, error) {
	return g.setChannel(ch, model.ReviewRejected)
}

func (g *Gate) setChannel(ch model.Channel, status model.ReviewStatus) (int, error) {
	if !ch.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}
	n := 0
	for i := range g.files {
		f := &g.files[i]
		if f.Locked() || f.ProcessingResult.DistributionMethod != ch {
			continue
		}
		f.Status = status
		n++
	}
	return n, nil
}

func (g *Gate) lookup(id string) (*model.ProcessedFile, error) {
	i, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &g.files[i], nil
}

// Counts returns the current tally.
func (g *Gate) Counts() Counts {
	var c Counts
	for _, f := range g.files {
		switch f.Status {
		case model.ReviewApproved:
			c.Approved++
		case model.ReviewRejected:
			c.Rejected++
		default:
			c.Pending++
		}
	}
	return c
}

// CanSubmit is true iff at least one file is approved and none is pending.
func (g *Gate) CanSubmit() bool {
	c := g.Counts()
	return c.Approved > 0 && c.Pending == 0
}

// SubmitLabel describes the submit action, explaining why it is disabled.
func (g *Gate) SubmitLabel() string {
	c := g.Counts()
	switch {
	case c.Pending > 0:
		return LabelReviewAll
	case c.Approved == 0:
		return LabelApproveOne
	default:
		return LabelSubmit
	}
}

// Groups buckets files by channel in review order, followed by the error
// group. Empty groups are omitted.
func (g *Gate) Groups() []Group {
	byName := make(map[string][]model.ProcessedFile)
	for _, f := range g.files {
		name := string(f.ProcessingResult.DistributionMethod)
		if f.Locked() {
			name = ErrorGroup
		}
		byName[name] = append(byName[name], f)
	}
	var groups []Group
	for _, ch := range model.Channels {
		if files := byName[string(ch)]; len(files) > 0 {
			groups = append(groups, Group{Name: string(ch), Files: files})
		}
	}
	if files := byName[ErrorGroup]; len(files) > 0 {
		groups = append(groups, Group{Name: ErrorGroup, Files: files})
	}
	return groups
}

// Files returns a copy of the processed files in classification order.
func (g *Gate) Files() []model.ProcessedFile {
	return append([]model.ProcessedFile(nil), g.files...)
}

// Get returns a copy of one processed file.
func (g *Gate) Get(id string) (model.ProcessedFile, error) {
	f, err := g.lookup(id)
	if err != nil {
		return model.ProcessedFile{}, err
	}
	return *f, nil
}
