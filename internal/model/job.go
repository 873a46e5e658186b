package model

import "time"

// DeliveryStatus tracks a single archived file after dispatch.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryError     DeliveryStatus = "error"
)

// JobStatus is derived from the statuses of a job's files.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// JobFile is one document inside an archived job.
type JobFile struct {
	ID                 string         `json:"id"`
	JobID              string         `json:"jobId"`
	FileName           string         `json:"fileName"`
	FileSize           int64          `json:"fileSize"`
	FileType           string         `json:"fileType"`
	Status             DeliveryStatus `json:"status"`
	DistributionMethod Channel        `json:"distributionMethod"`
	Recipient          string         `json:"recipient,omitempty"`
	ErrorMessage       string         `json:"errorMessage,omitempty"`
	ProcessedAt        *time.Time     `json:"processedAt,omitempty"`
	DeliveredAt        *time.Time     `json:"deliveredAt,omitempty"`
}

// JobHistory is the archive view of a named batch of files.
type JobHistory struct {
	ID             string    `json:"id"`
	JobName        string    `json:"jobName"`
	SourceFile     string    `json:"sourceFile,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	Status         JobStatus `json:"status"`
	TotalFiles     int       `json:"totalFiles"`
	CompletedFiles int       `json:"completedFiles"`
	PendingFiles   int       `json:"pendingFiles"`
	ErrorFiles     int       `json:"errorFiles"`
	Files          []JobFile `json:"files,omitempty"`
}

// Recount refreshes the aggregate counters and derived status from Files so
// that CompletedFiles+PendingFiles+ErrorFiles always equals TotalFiles.
func (j *JobHistory) Recount() {
	j.TotalFiles = len(j.Files)
	j.CompletedFiles, j.PendingFiles, j.ErrorFiles = 0, 0, 0
	for _, f := range j.Files {
		switch f.Status {
		case DeliveryDelivered:
			j.CompletedFiles++
		case DeliveryError:
			j.ErrorFiles++
		default:
			j.PendingFiles++
		}
	}
	j.Status = DeriveJobStatus(j.PendingFiles, j.ErrorFiles)
}

// DeriveJobStatus maps file counters to a job status: any pending file keeps
// the job processing, otherwise any error fails it.
func DeriveJobStatus(pending, errors int) JobStatus {
	switch {
	case pending > 0:
		return JobProcessing
	case errors > 0:
		return JobFailed
	default:
		return JobCompleted
	}
}

// Job is a recent upload shown on the start page.
type Job struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Name      string    `json:"name,omitempty"`
	Status    JobStatus `json:"status"`
	Timestamp int64     `json:"timestamp"`
	FileSize  float64   `json:"fileSize"`
	Pages     int       `json:"pages"`
}

// ResumeStatus describes a saved, resumable job.
type ResumeStatus string

const (
	ResumePaused    ResumeStatus = "paused"
	ResumeActive    ResumeStatus = "active"
	ResumeCompleted ResumeStatus = "completed"
	ResumeError     ResumeStatus = "error"
)

// ResumeJob is an interrupted job the user can pick up again.
type ResumeJob struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	CreatedDate time.Time    `json:"createdDate"`
	ExpiryDate  time.Time    `json:"expiryDate"`
	FileCount   int          `json:"fileCount"`
	Status      ResumeStatus `json:"status"`
}
