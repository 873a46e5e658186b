// Package model contains simple struct definitions shared across packages.
package model

import "time"

// UploadStatus describes where a staged file is in the upload lifecycle. In Go
// a type declared via "type X string" creates a new named type with string as
// the underlying representation, enabling better type safety than plain strings.
type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadUploading UploadStatus = "uploading"
	UploadCompleted UploadStatus = "completed"
	UploadError     UploadStatus = "error"
)

// StagedFile is a file selected by the user but not yet processed.
type StagedFile struct {
	ID     int64        `json:"id"`
	Name   string       `json:"name"`
	Size   int64        `json:"size"`
	Type   string       `json:"type,omitempty"`
	Pages  int          `json:"pages,omitempty"`
	Status UploadStatus `json:"status"`
}

// Channel is one of the three delivery methods.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPost  Channel = "post"
	ChannelKivra Channel = "kivra"
)

// Channels lists every channel in the order the review screen groups them.
var Channels = []Channel{ChannelKivra, ChannelEmail, ChannelPost}

// Valid reports whether c names a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelPost, ChannelKivra:
		return true
	}
	return false
}

// ValidationStatus is the classifier's verdict on a file.
type ValidationStatus string

const (
	ValidationSuccess ValidationStatus = "success"
	ValidationWarning ValidationStatus = "warning"
	ValidationError   ValidationStatus = "error"
)

// ReviewStatus is the approval state of a processed file.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// ProcessingResult holds the classifier output for a single file.
type ProcessingResult struct {
	DistributionMethod Channel          `json:"distributionMethod"`
	ValidationStatus   ValidationStatus `json:"validationStatus"`
	ValidationMessage  string           `json:"validationMessage"`
}

// ProcessedFile is a file that went through classification and awaits review.
type ProcessedFile struct {
	ID               string           `json:"id"`
	OriginalName     string           `json:"originalName"`
	Size             int64            `json:"size"`
	Type             string           `json:"type"`
	Status           ReviewStatus     `json:"status"`
	ProcessingResult ProcessingResult `json:"processingResult"`
}

// Locked reports whether the file failed validation. Locked files stay
// rejected for their whole lifetime.
func (f *ProcessedFile) Locked() bool {
	return f.ProcessingResult.ValidationStatus == ValidationError
}

// Savings is the monetary outcome of routing documents away from post.
type Savings struct {
	Amount        float64 `json:"amount"`
	Percentage    int     `json:"percentage"`
	EstimatedCost float64 `json:"estimatedCost"`
	Currency      string  `json:"currency"`
}

// SubmissionSummary is the terminal snapshot computed at submission time.
type SubmissionSummary struct {
	JobID         string    `json:"jobId,omitempty"`
	TotalFiles    int       `json:"totalFiles"`
	EmailFiles    int       `json:"emailFiles"`
	PostFiles     int       `json:"postFiles"`
	KivraFiles    int       `json:"kivraFiles"`
	RejectedFiles int       `json:"rejectedFiles"`
	Savings       Savings   `json:"savings"`
	SubmittedAt   time.Time `json:"submittedAt"`
}
