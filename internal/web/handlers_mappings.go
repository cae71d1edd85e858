package web

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/JonMunkholm/tabdiff/internal/core"
	"github.com/JonMunkholm/tabdiff/internal/schema"
)

func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := s.service.ListMappings(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, mappings)
}

func (s *Server) handleGetMapping(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	fm, err := s.service.GetMapping(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, fm)
}

func (s *Server) handleCreateMapping(w http.ResponseWriter, r *http.Request) {
	var in core.MappingInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondServiceError(w, r, err)
		return
	}

	fm, err := s.service.CreateMapping(r.Context(), in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, fm)
}

func (s *Server) handleUpdateMapping(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	var in core.MappingInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondServiceError(w, r, err)
		return
	}

	fm, err := s.service.UpdateMapping(r.Context(), id, in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, fm)
}

func (s *Server) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	if err := s.service.DeleteMapping(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAddVariation appends one column name to a mapping.
func (s *Server) handleAddVariation(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	var body struct {
		Variation string `json:"variation"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		respondServiceError(w, r, err)
		return
	}

	fm, err := s.service.AddVariation(r.Context(), id, body.Variation)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, fm)
}

// handleSeedMappings seeds from a YAML catalog in the body, or from the
// configured catalog when the body is empty.
func (s *Server) handleSeedMappings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		respondServiceError(w, r, fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}

	var cat *schema.Catalog
	if len(strings.TrimSpace(string(data))) > 0 {
		cat, err = schema.ParseCatalogYAML(data)
		if err != nil {
			respondServiceError(w, r, fmt.Errorf("%w: %v", errInvalidBody, err))
			return
		}
	} else {
		cat, err = core.SeedCatalog(s.cfg.Catalog.SeedPath)
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
	}

	res, err := s.service.SeedMappings(r.Context(), cat)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}
