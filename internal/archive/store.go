// Package archive is the read model of submitted jobs and their delivery
// progress.
package archive

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dharsanguruparan/omnigo/internal/model"
)

var (
	ErrNotFound     = errors.New("job not found")
	ErrBadFilter    = errors.New("unknown status filter")
	ErrFileNotFound = errors.New("job file not found")
	ErrEmptyJob     = errors.New("job has no files")
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// StatusFilter narrows a job's files to one delivery status. The zero value
// and FilterAll keep every file.
type StatusFilter string

const (
	FilterAll       StatusFilter = "all"
	FilterPending   StatusFilter = "pending"
	FilterDelivered StatusFilter = "delivered"
	FilterError     StatusFilter = "error"
)

// ParseStatusFilter validates a filter coming from a query string.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(s); f {
	case "", FilterAll:
		return FilterAll, nil
	case FilterPending, FilterDelivered, FilterError:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrBadFilter, s)
	}
}

// Keep reports whether a file with status passes the filter.
func (f StatusFilter) Keep(status model.DeliveryStatus) bool {
	if f == "" || f == FilterAll {
		return true
	}
	return string(f) == string(status)
}

// Page is one page of the archive listing. Jobs carry counters only, not
// their files.
type Page struct {
	Jobs       []model.JobHistory `json:"jobs"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
	Total      int                `json:"total"`
	TotalPages int                `json:"totalPages"`
}

// Store is implemented by the in-memory archive and the Postgres archive.
type Store interface {
	// List returns jobs newest first. page is 1-based.
	List(ctx context.Context, page, pageSize int) (Page, error)
	// Get returns one job with its files narrowed by filter. Counters always
	// describe the whole job.
	Get(ctx context.Context, id string, filter StatusFilter) (model.JobHistory, error)
	// Recent returns up to limit jobs as recent uploads, newest first.
	Recent(ctx context.Context, limit int) ([]model.Job, error)
	// Record stores a new job.
	Record(ctx context.Context, job model.JobHistory) error
	// UpdateFile moves one file to a delivery status.
	UpdateFile(ctx context.Context, jobID, fileID string, status model.DeliveryStatus, errMsg string, at time.Time) error
	// AllFiles returns every archived file, for the dashboard.
	AllFiles(ctx context.Context) ([]model.JobFile, error)
}

// NormalizePage clamps paging arguments to sane values.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

func totalPages(total, pageSize int) int {
	if total == 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// RecentJob renders a job as a recent upload. Size is reported in MB with one
// decimal; pages fall back to the file count.
func RecentJob(j model.JobHistory, totalBytes int64) model.Job {
	name := j.SourceFile
	if name == "" {
		name = j.JobName
	}
	return model.Job{
		ID:        j.ID,
		Filename:  name,
		Name:      j.JobName,
		Status:    j.Status,
		Timestamp: j.CreatedAt.UnixMilli(),
		FileSize:  math.Round(float64(totalBytes)/(1024*1024)*10) / 10,
		Pages:     j.TotalFiles,
	}
}

// Recipient is the mock address a file is delivered to on a channel.
func Recipient(ch model.Channel, index int) string {
	switch ch {
	case model.ChannelEmail:
		return fmt.Sprintf("recipient%d@example.com", index)
	case model.ChannelPost:
		return fmt.Sprintf("123 Main St, City %d, Country", index)
	default:
		return fmt.Sprintf("User%d", 1000+index)
	}
}
