package archive

import (
	"time"

	"github.com/dharsanguruparan/omnigo/internal/model"
)

// ResumeJobs lists the saved jobs a user can pick up again. Saving partial
// jobs is not supported yet, so this is the fixed demo entry.
func ResumeJobs() []model.ResumeJob {
	return []model.ResumeJob{
		{
			ID:          1,
			Name:        "Jobb 4",
			CreatedDate: time.Date(2024, time.February, 24, 14, 0, 0, 0, time.UTC),
			ExpiryDate:  time.Date(2024, time.December, 26, 20, 0, 0, 0, time.UTC),
			FileCount:   15,
			Status:      model.ResumePaused,
		},
	}
}
