package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/dharsanguruparan/omnigo/internal/document"
	"github.com/dharsanguruparan/omnigo/internal/logger"
	"github.com/dharsanguruparan/omnigo/internal/model"
	"github.com/dharsanguruparan/omnigo/internal/staging"
	"github.com/dharsanguruparan/omnigo/internal/workflow"
)

type stageRequest struct {
	Entry   string             `json:"entry"`
	Replace bool               `json:"replace"`
	Files   []staging.Incoming `json:"files"`
}

type stageResponse struct {
	staging.AddResult
	Workflow workflow.Snapshot `json:"workflow"`
}

type submitResponse struct {
	Summary  model.SubmissionSummary `json:"summary"`
	Workflow workflow.Snapshot       `json:"workflow"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.session(r).Snapshot())
}

// handleStage accepts either multipart "file" parts or a JSON description of
// the files. Multipart bytes are inspected and then discarded; only metadata
// is staged.
func (s *Server) handleStage(w http.ResponseWriter, r *http.Request) {
	var req stageRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, newBadRequestError("invalid JSON body", err))
			return
		}
		if err := s.checkSizes(req.Files); err != nil {
			respondError(w, err)
			return
		}
	} else {
		files, err := s.readMultipart(w, r)
		if err != nil {
			respondError(w, err)
			return
		}
		req.Files = files
	}
	if q := r.URL.Query().Get("entry"); q != "" {
		req.Entry = q
	}
	if q := r.URL.Query().Get("replace"); q != "" {
		replace, err := strconv.ParseBool(q)
		if err != nil {
			respondError(w, newBadRequestError("invalid replace flag", err))
			return
		}
		req.Replace = replace
	}
	if len(req.Files) == 0 {
		respondError(w, newBadRequestError("no files given", nil))
		return
	}

	wf := s.session(r)
	res, err := wf.Stage(req.Entry, req.Files, req.Replace)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stageResponse{AddResult: res, Workflow: wf.Snapshot()})
}

// checkSizes validates sizes the client declared, which multipart uploads
// measure instead.
func (s *Server) checkSizes(files []staging.Incoming) error {
	for _, f := range files {
		if f.Size <= 0 {
			return newBadRequestError(fmt.Sprintf("%s has invalid size %d", f.Name, f.Size), nil)
		}
		if f.Size > s.cfg.MaxFileSize {
			return s.fileTooLarge(f.Name)
		}
	}
	return nil
}

func (s *Server) fileTooLarge(name string) *APIError {
	return newTooLargeError(fmt.Sprintf("%s exceeds limit (%d bytes)", name, s.cfg.MaxFileSize))
}

func (s *Server) readMultipart(w http.ResponseWriter, r *http.Request) ([]staging.Incoming, error) {
	// MaxFileSize applies per file; the body cap allows a small batch.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize*16+1024)
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, newBadRequestError("expecting multipart form", err)
	}
	var files []staging.Incoming
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, newReadError("failed to read upload", err)
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}
		in, err := s.inspectPart(r, part)
		part.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, in)
	}
	return files, nil
}

// inspectPart streams one part, enforcing the size limit, and returns its
// metadata. PDFs are kept in memory long enough to count their pages.
func (s *Server) inspectPart(r *http.Request, part *multipart.Part) (staging.Incoming, error) {
	name := part.FileName()
	if name == "" {
		return staging.Incoming{}, newBadRequestError("file part without a name", nil)
	}
	isPDF := staging.Extension(name) == "pdf"

	var (
		sniff   []byte
		written int64
		body    bytes.Buffer
	)
	buf := make([]byte, 32*1024)
	for {
		n, readErr := part.Read(buf)
		if n > 0 {
			written += int64(n)
			if written > s.cfg.MaxFileSize {
				return staging.Incoming{}, s.fileTooLarge(name)
			}
			if len(sniff) < 512 {
				chunk := n
				if remain := 512 - len(sniff); chunk > remain {
					chunk = remain
				}
				sniff = append(sniff, buf[:chunk]...)
			}
			if isPDF {
				body.Write(buf[:n])
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return staging.Incoming{}, newReadError("failed to read file", readErr)
		}
	}
	if written == 0 {
		return staging.Incoming{}, newBadRequestError(name+" is empty", nil)
	}

	in := staging.Incoming{
		Name: name,
		Size: written,
		Type: http.DetectContentType(sniff),
	}
	if isPDF {
		pages, err := document.PageCount(body.Bytes())
		if err != nil {
			logger.Warn(r.Context(), "page count failed", "file", name, "error", err)
		} else {
			in.Pages = pages
		}
	}
	return in, nil
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, newBadRequestError("invalid file id", err))
		return
	}
	wf := s.session(r)
	if err := wf.Remove(id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, wf.Snapshot())
}

// transition runs one workflow action and answers with the new snapshot.
func (s *Server) transition(w http.ResponseWriter, r *http.Request, action func(*workflow.Workflow) error) {
	wf := s.session(r)
	if err := action(wf); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, wf.Snapshot())
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(wf *workflow.Workflow) error { return wf.StartUpload() })
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(wf *workflow.Workflow) error { return wf.Process() })
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(wf *workflow.Workflow) error { return wf.CancelReview() })
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(wf *workflow.Workflow) error {
		wf.Reset()
		return nil
	})
}

func (s *Server) handleDismissWarning(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(wf *workflow.Workflow) error {
		wf.DismissWarning()
		return nil
	})
}

func (s *Server) handleDecision(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		s.transition(w, r, func(wf *workflow.Workflow) error {
			if approve {
				return wf.Approve(id)
			}
			return wf.Reject(id)
		})
	}
}

func (s *Server) handleChannelDecision(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch := model.Channel(mux.Vars(r)["channel"])
		s.transition(w, r, func(wf *workflow.Workflow) error {
			if approve {
				return wf.ApproveAll(ch)
			}
			return wf.RejectAll(ch)
		})
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	wf := s.session(r)
	sum, err := wf.Submit(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, submitResponse{Summary: sum, Workflow: wf.Snapshot()})
}
