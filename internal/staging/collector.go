// Package staging collects the files a user picks before they are uploaded.
package staging

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dharsanguruparan/omnigo/internal/model"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrUnknownEntry    = errors.New("unknown upload entry point")
	ErrNotFound        = errors.New("staged file not found")
)

// Incoming describes a file offered for staging.
type Incoming struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	Type  string `json:"type,omitempty"`
	Pages int    `json:"pages,omitempty"`
}

// AddResult reports what Add did with a batch.
type AddResult struct {
	Added      []model.StagedFile `json:"added"`
	Duplicates []string           `json:"duplicates,omitempty"`
	Warning    string             `json:"warning,omitempty"`
}

// Collector holds the working set of staged files in insertion order. It is
// not safe for concurrent use; the owning workflow serializes access.
type Collector struct {
	allow      map[string]map[string]struct{}
	warningTTL time.Duration
	now        func() time.Time

	files          []model.StagedFile
	nextID         int64
	warning        string
	warningExpires time.Time
}

// NewCollector builds a Collector. allow maps each entry point to the file
// extensions it accepts, without the leading dot.
func NewCollector(allow map[string][]string, warningTTL time.Duration, now func() time.Time) *Collector {
	if now == nil {
		now = time.Now
	}
	sets := make(map[string]map[string]struct{}, len(allow))
	for entry, exts := range allow {
		set := make(map[string]struct{}, len(exts))
		for _, ext := range exts {
			set[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
		}
		sets[entry] = set
	}
	return &Collector{allow: sets, warningTTL: warningTTL, now: now}
}

// Add stages files arriving through entry. With replaceExisting the new batch
// replaces the working set; otherwise it is appended. A file whose name and
// size match one already staged (or one earlier in the same batch) is skipped
// and raises a transient warning. If any file's extension is outside the
// entry's allow-list the whole batch is refused and nothing changes.
func (c *Collector) Add(entry string, files []Incoming, replaceExisting bool) (AddResult, error) {
	allowed, ok := c.allow[entry]
	if !ok {
		return AddResult{}, fmt.Errorf("%w: %q", ErrUnknownEntry, entry)
	}
	var unsupported []string
	for _, f := range files {
		if _, ok := allowed[Extension(f.Name)]; !ok {
			unsupported = append(unsupported, f.Name)
		}
	}
	if len(unsupported) > 0 {
		return AddResult{}, fmt.Errorf("%w: %s", ErrUnsupportedType, strings.Join(unsupported, ", "))
	}

	existing := c.files
	if replaceExisting {
		existing = nil
	}
	seen := make(map[fileKey]struct{}, len(existing)+len(files))
	for _, f := range existing {
		seen[fileKey{f.Name, f.Size}] = struct{}{}
	}

	var result AddResult
	merged := append([]model.StagedFile(nil), existing...)
	for _, f := range files {
		key := fileKey{f.Name, f.Size}
		if _, dup := seen[key]; dup {
			result.Duplicates = append(result.Duplicates, f.Name)
			continue
		}
		seen[key] = struct{}{}
		c.nextID++
		staged := model.StagedFile{
			ID:     c.nextID,
			Name:   f.Name,
			Size:   f.Size,
			Type:   f.Type,
			Pages:  f.Pages,
			Status: model.UploadPending,
		}
		merged = append(merged, staged)
		result.Added = append(result.Added, staged)
	}
	c.files = merged

	if n := len(result.Duplicates); n > 0 {
		c.warning = fmt.Sprintf("%q is already in your upload list.", result.Duplicates[n-1])
		c.warningExpires = c.now().Add(c.warningTTL)
		result.Warning = c.warning
	}
	return result, nil
}

type fileKey struct {
	name string
	size int64
}

// Remove deletes one staged file and reports whether the set is now empty.
func (c *Collector) Remove(id int64) (bool, error) {
	for i, f := range c.files {
		if f.ID == id {
			c.files = append(c.files[:i:i], c.files[i+1:]...)
			return len(c.files) == 0, nil
		}
	}
	return len(c.files) == 0, fmt.Errorf("%w: %d", ErrNotFound, id)
}

// SetStatus records an upload transition for one file.
func (c *Collector) SetStatus(id int64, status model.UploadStatus) error {
	for i := range c.files {
		if c.files[i].ID == id {
			c.files[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrNotFound, id)
}

// Warning returns the duplicate warning until it expires.
func (c *Collector) Warning() string {
	if c.warning != "" && !c.now().Before(c.warningExpires) {
		c.warning = ""
	}
	return c.warning
}

// DismissWarning clears the duplicate warning early.
func (c *Collector) DismissWarning() {
	c.warning = ""
}

// Files returns a copy of the working set.
func (c *Collector) Files() []model.StagedFile {
	return append([]model.StagedFile(nil), c.files...)
}

// WithStatus returns the files currently in status.
func (c *Collector) WithStatus(status model.UploadStatus) []model.StagedFile {
	var out []model.StagedFile
	for _, f := range c.files {
		if f.Status == status {
			out = append(out, f)
		}
	}
	return out
}

// Len returns the number of staged files.
func (c *Collector) Len() int { return len(c.files) }

// Clear drops every staged file and the warning. Ids keep increasing.
func (c *Collector) Clear() {
	c.files = nil
	c.warning = ""
}

// Entries lists the configured entry points.
func (c *Collector) Entries() []string {
	out := make([]string, 0, len(c.allow))
	for entry := range c.allow {
		out = append(out, entry)
	}
	return out
}

// Extension returns the lower-case extension of name without the dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
