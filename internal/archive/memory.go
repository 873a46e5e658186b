package archive

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dharsanguruparan/omnigo/internal/model"
)

// MemoryStore keeps the archive in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs []*model.JobHistory
	byID map[string]*model.JobHistory
}

// NewMemoryStore builds a store holding jobs. Pass SeedJobs() for the demo
// archive or nil for an empty one.
func NewMemoryStore(jobs []model.JobHistory) *MemoryStore {
	m := &MemoryStore{byID: make(map[string]*model.JobHistory, len(jobs))}
	for i := range jobs {
		job := cloneJob(jobs[i])
		m.jobs = append(m.jobs, &job)
		m.byID[job.ID] = &job
	}
	m.sort()
	return m
}

func (m *MemoryStore) sort() {
	sort.SliceStable(m.jobs, func(i, j int) bool {
		return m.jobs[i].CreatedAt.After(m.jobs[j].CreatedAt)
	})
}

func (m *MemoryStore) List(_ context.Context, page, pageSize int) (Page, error) {
	page, pageSize = NormalizePage(page, pageSize)

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := Page{
		Jobs:       []model.JobHistory{},
		Page:       page,
		PageSize:   pageSize,
		Total:      len(m.jobs),
		TotalPages: totalPages(len(m.jobs), pageSize),
	}
	start := (page - 1) * pageSize
	if start >= len(m.jobs) {
		return out, nil
	}
	end := start + pageSize
	if end > len(m.jobs) {
		end = len(m.jobs)
	}
	for _, j := range m.jobs[start:end] {
		row := *j
		row.Files = nil
		out.Jobs = append(out.Jobs, row)
	}
	return out, nil
}

func (m *MemoryStore) Get(_ context.Context, id string, filter StatusFilter) (model.JobHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.byID[id]
	if !ok {
		return model.JobHistory{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	out := *j
	out.Files = []model.JobFile{}
	for _, f := range j.Files {
		if filter.Keep(f.Status) {
			out.Files = append(out.Files, f)
		}
	}
	return out, nil
}

func (m *MemoryStore) Recent(_ context.Context, limit int) ([]model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if limit > 0 && len(out) == limit {
			break
		}
		var bytes int64
		for _, f := range j.Files {
			bytes += f.FileSize
		}
		out = append(out, RecentJob(*j, bytes))
	}
	return out, nil
}

func (m *MemoryStore) Record(_ context.Context, job model.JobHistory) error {
	if len(job.Files) == 0 {
		return ErrEmptyJob
	}
	job = cloneJob(job)
	job.Recount()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[job.ID]; exists {
		return fmt.Errorf("record job: duplicate id %s", job.ID)
	}
	m.jobs = append(m.jobs, &job)
	m.byID[job.ID] = &job
	m.sort()
	return nil
}

func (m *MemoryStore) UpdateFile(_ context.Context, jobID, fileID string, status model.DeliveryStatus, errMsg string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.byID[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	for i := range j.Files {
		f := &j.Files[i]
		if f.ID != fileID {
			continue
		}
		applyDelivery(f, status, errMsg, at)
		j.Recount()
		return nil
	}
	return fmt.Errorf("%w: %s/%s", ErrFileNotFound, jobID, fileID)
}

func (m *MemoryStore) AllFiles(_ context.Context) ([]model.JobFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.JobFile
	for _, j := range m.jobs {
		out = append(out, j.Files...)
	}
	return out, nil
}

// applyDelivery moves f to status, stamping processing and delivery times.
func applyDelivery(f *model.JobFile, status model.DeliveryStatus, errMsg string, at time.Time) {
	f.Status = status
	f.ErrorMessage = ""
	switch status {
	case model.DeliveryDelivered:
		f.ProcessedAt = &at
		f.DeliveredAt = &at
	case model.DeliveryError:
		f.ProcessedAt = &at
		f.DeliveredAt = nil
		f.ErrorMessage = errMsg
		if f.ErrorMessage == "" {
			f.ErrorMessage = DeliveryFailedMessage
		}
	}
}

func cloneJob(j model.JobHistory) model.JobHistory {
	j.Files = append([]model.JobFile(nil), j.Files...)
	return j
}
