package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/spigell/navihire/internal/assistant"
	"github.com/spigell/navihire/internal/flights"
	"github.com/spigell/navihire/internal/resume"
	"go.uber.org/zap"
)

const maxUploadBytes = 32 << 20

var resumeExtensions = map[string]bool{".pdf": true, ".doc": true, ".docx": true, ".txt": true, ".md": true}

// uploadResumes attaches multipart "files" to the session and asks the
// assistant to analyze them.
func (s *Server) uploadResumes(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	var (
		uploads []resume.Upload
		names   []string
	)
	for _, fh := range r.MultipartForm.File["files"] {
		if !resumeExtensions[strings.ToLower(filepath.Ext(fh.Filename))] {
			s.logger.Debug("skipping unsupported upload", zap.String("filename", fh.Filename))
			continue
		}

		f, err := fh.Open()
		if err != nil {
			s.logger.Warn("failed to open upload", zap.String("filename", fh.Filename), zap.Error(err))
			continue
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.logger.Warn("failed to read upload", zap.String("filename", fh.Filename), zap.Error(err))
			continue
		}

		uploads = append(uploads, resume.Upload{Filename: fh.Filename, Content: content})
		names = append(names, fh.Filename)
	}

	if len(uploads) == 0 {
		writeError(w, http.StatusBadRequest, "No valid resume files found")
		return
	}

	reply, err := s.assistant.Handle(r.Context(), assistant.Request{
		SessionID: r.FormValue("session_id"),
		UserID:    r.FormValue("user_id"),
		JobID:     r.FormValue("job_id"),
		Message:   fmt.Sprintf("Please analyze the %d uploaded resumes: %s", len(uploads), strings.Join(names, ", ")),
		Resumes:   uploads,
	})
	if err != nil {
		s.fail(w, "resume upload failed", err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

type flightSearchRequest struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
}

func (s *Server) searchFlights(w http.ResponseWriter, r *http.Request) {
	var req flightSearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Origin == "" || req.Destination == "" || req.Date == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameters: origin, destination, date")
		return
	}

	options, err := s.flights.Search(r.Context(), flights.Query{Origin: req.Origin, Destination: req.Destination, Date: req.Date})
	if err != nil {
		s.fail(w, "flight search failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"flights":       options,
		"total_found":   len(options),
		"search_params": req,
	})
}
