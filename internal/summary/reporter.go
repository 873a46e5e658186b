// Package summary aggregates review outcomes and prices them.
package summary

import (
	"fmt"
	"math"
	"time"

	"github.com/dharsanguruparan/omnigo/internal/config"
	"github.com/dharsanguruparan/omnigo/internal/model"
)

// CostModel is the per-document price of every channel. Baseline is the
// channel each document would have gone through without routing, so savings
// are measured against it.
type CostModel struct {
	Currency string
	Prices   map[model.Channel]float64
	Baseline model.Channel
}

// NewCostModel validates pricing config: every channel needs a non-negative
// price.
func NewCostModel(cfg config.PricingConfig) (CostModel, error) {
	m := CostModel{
		Currency: cfg.Currency,
		Prices:   make(map[model.Channel]float64, len(model.Channels)),
		Baseline: model.ChannelPost,
	}
	for _, ch := range model.Channels {
		price, ok := cfg.Channels[string(ch)]
		if !ok {
			return CostModel{}, fmt.Errorf("pricing: missing price for channel %q", ch)
		}
		if price < 0 {
			return CostModel{}, fmt.Errorf("pricing: negative price for channel %q", ch)
		}
		m.Prices[ch] = price
	}
	return m, nil
}

// Reporter builds submission summaries and savings figures.
type Reporter struct {
	costs CostModel
	now   func() time.Time
}

// NewReporter builds a Reporter for costs.
func NewReporter(costs CostModel, now func() time.Time) *Reporter {
	if now == nil {
		now = time.Now
	}
	return &Reporter{costs: costs, now: now}
}

// Summarize partitions approved files by channel, counts rejected files
// (auto-rejected ones included) and prices the approved set.
func (r *Reporter) Summarize(files []model.ProcessedFile) model.SubmissionSummary {
	s := model.SubmissionSummary{
		TotalFiles:  len(files),
		SubmittedAt: r.now().UTC(),
	}
	perChannel := make(map[model.Channel]int, len(model.Channels))
	for _, f := range files {
		switch f.Status {
		case model.ReviewApproved:
			perChannel[f.ProcessingResult.DistributionMethod]++
		case model.ReviewRejected:
			s.RejectedFiles++
		}
	}
	s.EmailFiles = perChannel[model.ChannelEmail]
	s.PostFiles = perChannel[model.ChannelPost]
	s.KivraFiles = perChannel[model.ChannelKivra]
	s.Savings = r.Savings(perChannel)
	return s
}

// Savings prices counts documents per channel against the baseline channel.
func (r *Reporter) Savings(counts map[model.Channel]int) model.Savings {
	baseline := r.costs.Prices[r.costs.Baseline]
	var total, spent float64
	for ch, n := range counts {
		total += float64(n) * baseline
		spent += float64(n) * r.costs.Prices[ch]
	}
	out := model.Savings{
		Amount:        round2(total - spent),
		EstimatedCost: round2(spent),
		Currency:      r.costs.Currency,
	}
	if total > 0 {
		out.Percentage = int(math.Round((total - spent) / total * 100))
	}
	return out
}

// Dashboard prices every archived file that was not lost to an error.
func (r *Reporter) Dashboard(files []model.JobFile) model.Savings {
	counts := make(map[model.Channel]int, len(model.Channels))
	for _, f := range files {
		if f.Status == model.DeliveryError {
			continue
		}
		counts[f.DistributionMethod]++
	}
	return r.Savings(counts)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
