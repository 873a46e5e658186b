package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/dharsanguruparan/omnigo/internal/archive"
	"github.com/dharsanguruparan/omnigo/internal/model"
)

const recentJobsLimit = 10

// Dashboard is the aggregate shown after a submission: what routing saved and
// where deliveries stand.
type Dashboard struct {
	Savings    model.Savings         `json:"savings"`
	TotalFiles int                   `json:"totalFiles"`
	Delivered  int                   `json:"delivered"`
	Pending    int                   `json:"pending"`
	Failed     int                   `json:"failed"`
	ByChannel  map[model.Channel]int `json:"byChannel"`
}

func (s *Server) handleRecentJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.deps.Archive.Recent(r.Context(), recentJobsLimit)
	if err != nil {
		respondError(w, err)
		return
	}
	if jobs == nil {
		jobs = []model.Job{}
	}
	respondJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleResumeJobs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, archive.ResumeJobs())
}

func (s *Server) handleArchiveList(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		respondError(w, err)
		return
	}
	size, err := queryInt(r, "pageSize", archive.DefaultPageSize)
	if err != nil {
		respondError(w, err)
		return
	}
	out, err := s.deps.Archive.List(r.Context(), page, size)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, r, http.StatusOK, out)
}

func (s *Server) handleArchiveJob(w http.ResponseWriter, r *http.Request) {
	filter, err := archive.ParseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, err)
		return
	}
	job, err := s.deps.Archive.Get(r.Context(), mux.Vars(r)["id"], filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, r, http.StatusOK, job)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	files, err := s.deps.Archive.AllFiles(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	d := Dashboard{
		Savings:    s.deps.Reporter.Dashboard(files),
		TotalFiles: len(files),
		ByChannel:  make(map[model.Channel]int, len(model.Channels)),
	}
	for _, f := range files {
		d.ByChannel[f.DistributionMethod]++
		switch f.Status {
		case model.DeliveryDelivered:
			d.Delivered++
		case model.DeliveryError:
			d.Failed++
		default:
			d.Pending++
		}
	}
	respondJSON(w, http.StatusOK, d)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, newBadRequestError("invalid "+key, err)
	}
	return n, nil
}
