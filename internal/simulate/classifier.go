package simulate

import (
	"github.com/google/uuid"

	"github.com/dharsanguruparan/omnigo/internal/model"
)

var (
	classifierChannels = []model.Channel{model.ChannelEmail, model.ChannelPost, model.ChannelKivra}
	validationOutcomes = []model.ValidationStatus{model.ValidationSuccess, model.ValidationWarning, model.ValidationError}
)

// Validation messages shown next to the verdict.
const (
	MessageWarning = "Some content may need review."
	MessageError   = "File format issues detected."
)

// Classifier assigns each uploaded file a delivery channel and a validation
// verdict.
type Classifier struct {
	rnd   Source
	newID func() string
}

// NewClassifier builds a Classifier drawing from rnd.
func NewClassifier(rnd Source) *Classifier {
	return &Classifier{
		rnd: rnd,
		newID: func() string {
			return uuid.NewString()[:8]
		},
	}
}

// Classify turns staged files into processed files. A file whose validation
// fails starts out rejected and stays that way; every other file starts
// pending and needs an explicit decision.
func (c *Classifier) Classify(files []model.StagedFile) []model.ProcessedFile {
	out := make([]model.ProcessedFile, 0, len(files))
	for _, f := range files {
		result := model.ProcessingResult{
			DistributionMethod: classifierChannels[c.rnd.Intn(len(classifierChannels))],
			ValidationStatus:   validationOutcomes[c.rnd.Intn(len(validationOutcomes))],
		}
		switch result.ValidationStatus {
		case model.ValidationWarning:
			result.ValidationMessage = MessageWarning
		case model.ValidationError:
			result.ValidationMessage = MessageError
		}
		status := model.ReviewPending
		if result.ValidationStatus == model.ValidationError {
			status = model.ReviewRejected
		}
		out = append(out, model.ProcessedFile{
			ID:               c.newID(),
			OriginalName:     f.Name,
			Size:             f.Size,
			Type:             f.Type,
			Status:           status,
			ProcessingResult: result,
		})
	}
	return out
}
