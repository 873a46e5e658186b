package archive

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dharsanguruparan/omnigo/internal/model"
)

// DeliveryFailedMessage is shown on files that could not be delivered.
const DeliveryFailedMessage = "Could not be delivered"

type seedJob struct {
	id       string
	filename string
	name     string
	at       string
	sizeMB   float64
	pages    int
}

var seedJobs = []seedJob{
	{"1", "quarterly_report.pdf", "Quarterly Financial Report - Q2 2023", "2023-06-15T14:30:00Z", 2.4, 12},
	{"2", "financial_analysis.pdf", "Annual Financial Analysis 2023", "2023-06-10T09:15:00Z", 1.8, 5},
	{"3", "presentation_deck.pdf", "Executive Board Presentation", "2023-06-05T16:45:00Z", 5.2, 24},
	{"4", "contract_draft.pdf", "Client Contract Drafts - June 2023", "2023-05-28T11:20:00Z", 0.9, 8},
	{"5", "marketing_plan.pdf", "Q3 Marketing Campaign Plan", "2023-05-20T13:10:00Z", 3.7, 18},
	{"6", "budget_2023.pdf", "Department Budget Allocation 2023", "2023-05-15T10:05:00Z", 1.2, 3},
	{"7", "project_timeline.pdf", "Project Milestone Timeline", "2023-05-10T15:30:00Z", 0.8, 2},
}

var seedChannels = []model.Channel{model.ChannelEmail, model.ChannelPost, model.ChannelKivra}

// SeedJobs returns the fixed demo archive, newest first. Every call builds a
// fresh copy.
//
// One file per page; by position, every fifth file starting at 0 is pending,
// the one after it failed, the rest delivered. Channels rotate email, post,
// kivra.
func SeedJobs() []model.JobHistory {
	jobs := make([]model.JobHistory, 0, len(seedJobs))
	for _, s := range seedJobs {
		created, err := time.Parse(time.RFC3339, s.at)
		if err != nil {
			panic(fmt.Sprintf("archive: bad seed time %q: %v", s.at, err))
		}
		stem := strings.TrimSuffix(s.filename, ".pdf")
		size := int64(math.Round(s.sizeMB * 1024 * 1024 / float64(s.pages)))

		job := model.JobHistory{
			ID:         s.id,
			JobName:    s.name,
			SourceFile: s.filename,
			CreatedAt:  created,
		}
		for i := 0; i < s.pages; i++ {
			ch := seedChannels[i%len(seedChannels)]
			f := model.JobFile{
				ID:                 fmt.Sprintf("file_%s_%d", s.id, i),
				JobID:              s.id,
				FileName:           fmt.Sprintf("%s_part%d.pdf", stem, i+1),
				FileSize:           size,
				FileType:           "application/pdf",
				DistributionMethod: ch,
				Recipient:          Recipient(ch, i),
			}
			switch i % 5 {
			case 0:
				f.Status = model.DeliveryPending
			case 1:
				f.Status = model.DeliveryError
				f.ErrorMessage = DeliveryFailedMessage
			default:
				f.Status = model.DeliveryDelivered
			}
			if f.Status != model.DeliveryPending {
				processed := created.Add(time.Hour)
				f.ProcessedAt = &processed
			}
			if f.Status == model.DeliveryDelivered {
				delivered := created.Add(2 * time.Hour)
				f.DeliveredAt = &delivered
			}
			job.Files = append(job.Files, f)
		}
		job.Recount()
		jobs = append(jobs, job)
	}
	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs
}
