package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/tabdiff/internal/compare"
	"github.com/JonMunkholm/tabdiff/internal/core"
)

// handleSuggest proposes column pairs for two uploaded files.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	up, err := s.receivePair(w, r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	defer up.Close()

	result, err := s.service.SuggestMappings(r.Context(), up.File1, up.File2)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// handleCompare compares two uploaded files using fieldMappings, fieldTypes
// or both.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	up, err := s.receivePair(w, r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	defer up.Close()

	fields, err := parseFieldMappings(r.FormValue("fieldMappings"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	fieldTypes, err := formList(r.FormValue("fieldTypes"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	job, err := s.service.Compare(r.Context(), core.CompareRequest{
		File1:      up.File1,
		File2:      up.File2,
		Fields:     fields,
		FieldTypes: fieldTypes,
	})
	if err != nil {
		status := statusFor(err)
		resp := errorResponse(r, err, status)
		if job != nil {
			resp.JobID = job.ID.String()
		}
		writeJSONStatus(w, status, resp)
		return
	}
	writeJSON(w, job)
}

// handleResolve resolves field types to a column in each uploaded file.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	up, err := s.receivePair(w, r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	defer up.Close()

	fieldTypes, err := formList(r.FormValue("fieldTypes"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	pairs, err := s.service.ResolveFields(r.Context(), up.File1, up.File2, fieldTypes)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"fields": pairs})
}

// parseFieldMappings accepts either an object mapping file 1 columns to
// file 2 columns, labelled by the file 1 column, or an array of
// {"field", "column1", "column2"}. Object order is kept.
func parseFieldMappings(raw string) ([]compare.FieldPair, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if strings.HasPrefix(raw, "[") {
		var pairs []compare.FieldPair
		if err := json.Unmarshal([]byte(raw), &pairs); err != nil {
			return nil, fieldMappingsErr(err)
		}
		for i := range pairs {
			if pairs[i].Label == "" {
				pairs[i].Label = pairs[i].Column1
			}
		}
		return pairs, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	tok, err := dec.Token()
	if err != nil {
		return nil, fieldMappingsErr(err)
	}
	if tok != json.Delim('{') {
		return nil, fieldMappingsErr(errors.New("expected an object or an array"))
	}

	var pairs []compare.FieldPair
	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return nil, fieldMappingsErr(err)
		}
		var col2 string
		if err := dec.Decode(&col2); err != nil {
			return nil, fieldMappingsErr(err)
		}
		col1 := key.(string)
		pairs = append(pairs, compare.FieldPair{Label: col1, Column1: col1, Column2: col2})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fieldMappingsErr(err)
	}
	return pairs, nil
}

func fieldMappingsErr(err error) error {
	return fmt.Errorf("%w: fieldMappings: %v", core.ErrInvalidMapping, err)
}
