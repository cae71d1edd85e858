package web

// Shared request parsing: ids, query parameters, JSON bodies and uploads.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/tabdiff/internal/core"
	"github.com/JonMunkholm/tabdiff/internal/logging"
)

const (
	// maxJSONBody caps JSON request bodies, including posted reports.
	maxJSONBody = 20 << 20

	// multipartMemory is kept in memory while parsing; the rest spills to disk.
	multipartMemory = 32 << 20
)

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseID reads the {id} route parameter.
func parseID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", errInvalidID, raw)
	}
	return id, nil
}

// decodeJSON reads a single JSON value from the body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return core.ErrFileTooLarge
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

// uploadedPair holds two uploaded files saved to disk.
type uploadedPair struct {
	File1, File2 core.Input
	paths        []string
}

// Close removes the saved copies.
func (u *uploadedPair) Close() {
	for _, p := range u.paths {
		os.Remove(p)
	}
}

// receivePair parses a multipart form carrying file1 and file2 and saves both
// under the upload temp dir. The caller must Close the result, which is
// non-nil whenever err is nil.
func (s *Server) receivePair(w http.ResponseWriter, r *http.Request) (*uploadedPair, error) {
	maxSize := s.cfg.Upload.MaxFileSize

	// Two files plus form fields.
	r.Body = http.MaxBytesReader(w, r.Body, 2*maxSize+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, core.ErrFileTooLarge
		}
		return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	defer r.MultipartForm.RemoveAll()

	up := &uploadedPair{}
	for i, field := range []string{"file1", "file2"} {
		in, path, err := s.saveUpload(r, field)
		if err != nil {
			up.Close()
			return nil, fmt.Errorf("file %d: %w", i+1, err)
		}
		up.paths = append(up.paths, path)
		if i == 0 {
			up.File1 = in
		} else {
			up.File2 = in
		}
	}
	return up, nil
}

// saveUpload copies one form file to a temp file, keeping its extension.
func (s *Server) saveUpload(r *http.Request, field string) (core.Input, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return core.Input{}, "", core.ErrNoFile
		}
		return core.Input{}, "", fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	defer file.Close()

	if header.Size == 0 {
		return core.Input{}, "", core.ErrEmptyFile
	}
	if header.Size > s.cfg.Upload.MaxFileSize {
		return core.Input{}, "", fmt.Errorf("%w: %s is %d bytes", core.ErrFileTooLarge, header.Filename, header.Size)
	}

	path, err := copyToTemp(s.cfg.Upload.TempDir, header, file)
	if err != nil {
		return core.Input{}, "", err
	}

	logging.FromContext(r.Context()).Debug("upload saved",
		"field", field,
		"filename", header.Filename,
		"size", header.Size,
	)
	return core.Input{URI: path, Name: filepath.Base(header.Filename)}, path, nil
}

func copyToTemp(dir string, header *multipart.FileHeader, src io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))

	tmp, err := os.CreateTemp(dir, "tabdiff-upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("save upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("save upload: %w", err)
	}
	return tmp.Name(), nil
}

// formList reads a form value holding either a JSON array of strings or a
// comma separated list.
func formList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "[") {
		var out []string
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
		}
		return out, nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}
