package apitest

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/Veraticus/showroom/internal/model"
)

const maxUploadBytes = 50 << 20

// SetStorageConfigured toggles whether raw uploads are accepted.
func (s *Server) SetStorageConfigured(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s3Ready = ready
}

func (s *Server) handleStorageStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	ready := s.s3Ready
	s.mu.Unlock()

	status := model.StorageStatus{Configured: ready, Message: "S3 is configured and ready"}
	if !ready {
		status.Message = "S3 is not configured. Set AWS credentials and bucket name."
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleRawUpload(w http.ResponseWriter, r *http.Request) {
	name, data, ok := readUpload(w, r)
	if !ok {
		return
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".csv" && ext != ".xlsx" {
		writeDetail(w, http.StatusBadRequest, "Only CSV and XLSX files are allowed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.s3Ready {
		writeDetail(w, http.StatusServiceUnavailable, "S3 is not configured")
		return
	}
	key := "uploads/" + uuid.NewString() + "/" + name
	s.objects[key] = data

	writeJSON(w, http.StatusOK, model.StorageUploadResult{
		Success:  true,
		Message:  "File uploaded successfully",
		S3Key:    key,
		Filename: name,
	})
}

// readUpload extracts the multipart "file" field, answering 400 itself on failure.
func readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "No file uploaded")
		return "", nil, false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Failed to read uploaded file")
		return "", nil, false
	}
	if len(data) > maxUploadBytes {
		writeDetail(w, http.StatusRequestEntityTooLarge, "File size exceeds 50MB limit")
		return "", nil, false
	}
	return filepath.Base(header.Filename), data, true
}
