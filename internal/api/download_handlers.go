package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/dharsanguruparan/omnigo/internal/archive"
	"github.com/dharsanguruparan/omnigo/internal/document"
)

type downloadURL struct {
	URL       string    `json:"url"`
	FileName  string    `json:"fileName"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// handleFileDownloadURL issues a preview download for a file in the caller's
// current review.
func (s *Server) handleFileDownloadURL(w http.ResponseWriter, r *http.Request) {
	f, err := s.session(r).ProcessedFile(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	validation := string(f.ProcessingResult.ValidationStatus)
	if msg := f.ProcessingResult.ValidationMessage; msg != "" {
		validation += ": " + msg
	}
	s.issueDownload(w, r, document.Preview{
		FileID:     f.ID,
		FileName:   f.OriginalName,
		Channel:    string(f.ProcessingResult.DistributionMethod),
		Status:     string(f.Status),
		Validation: validation,
	})
}

// handleArchiveDownloadURL issues a preview download for an archived file.
func (s *Server) handleArchiveDownloadURL(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	job, err := s.deps.Archive.Get(r.Context(), vars["id"], archive.FilterAll)
	if err != nil {
		respondError(w, err)
		return
	}
	for _, f := range job.Files {
		if f.ID != vars["fileId"] {
			continue
		}
		s.issueDownload(w, r, document.Preview{
			FileID:    f.ID,
			FileName:  f.FileName,
			Channel:   string(f.DistributionMethod),
			Status:    string(f.Status),
			Recipient: f.Recipient,
		})
		return
	}
	respondError(w, fmt.Errorf("%w: %s/%s", archive.ErrFileNotFound, job.ID, vars["fileId"]))
}

func (s *Server) issueDownload(w http.ResponseWriter, r *http.Request, p document.Preview) {
	p.Generated = time.Now()
	data, err := document.RenderPreview(p)
	if err != nil {
		respondError(w, newInternalError("failed to render preview", err))
		return
	}
	name := document.PreviewName(p.FileName)
	key := fmt.Sprintf("previews/%s.pdf", uuid.NewString())
	if err := s.deps.Artifacts.Put(r.Context(), key, name, data); err != nil {
		respondError(w, newInternalError("failed to store preview", err))
		return
	}
	u, err := s.deps.Artifacts.URL(r.Context(), key, s.cfg.SignedURLTTL)
	if err != nil {
		respondError(w, newInternalError("failed to generate url", err))
		return
	}
	respondJSON(w, http.StatusOK, downloadURL{
		URL:       u,
		FileName:  name,
		ExpiresAt: time.Now().Add(s.cfg.SignedURLTTL).UTC(),
	})
}

// handleDownload serves an in-memory artifact behind an HMAC signed URL.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key, expires, signature := q.Get("file"), q.Get("expires"), q.Get("signature")
	if key == "" || expires == "" || signature == "" {
		respondError(w, newBadRequestError("missing parameters", nil))
		return
	}
	if err := s.deps.Signer.Verify(key, expires, signature); err != nil {
		respondError(w, err)
		return
	}
	item, err := s.deps.Local.Get(key)
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(item.Data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", item.Name))
	http.ServeContent(w, r, item.Name, item.CreatedAt, bytes.NewReader(item.Data))
}
