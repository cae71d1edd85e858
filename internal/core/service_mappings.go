package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/tabdiff/internal/schema"
	"github.com/JonMunkholm/tabdiff/internal/store"
)

// MappingInput carries the editable fields of a field mapping.
// A nil Active keeps the current value (true for new mappings).
type MappingInput struct {
	FieldType   string   `json:"field_type"`
	Variations  []string `json:"variations"`
	Description string   `json:"description"`
	Active      *bool    `json:"is_active,omitempty"`
}

func (in MappingInput) validate() (string, error) {
	ft := strings.TrimSpace(in.FieldType)
	if ft == "" {
		return "", fmt.Errorf("%w: field type is required", ErrInvalidMapping)
	}
	return ft, nil
}

// Catalog builds an immutable snapshot from the active mappings. An empty
// store yields the built-in catalog so a fresh install can still resolve
// common field types.
func (s *Service) Catalog(ctx context.Context) (*schema.Catalog, error) {
	mappings, err := s.store.ListMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	if len(mappings) == 0 {
		return schema.DefaultCatalog(), nil
	}

	m := make(map[string][]string, len(mappings))
	for _, fm := range mappings {
		if fm.Active {
			m[fm.FieldType] = fm.Variations
		}
	}
	return schema.NewCatalog(m), nil
}

func (s *Service) ListMappings(ctx context.Context) ([]store.FieldMapping, error) {
	mappings, err := s.store.ListMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	if mappings == nil {
		mappings = []store.FieldMapping{}
	}
	return mappings, nil
}

func (s *Service) GetMapping(ctx context.Context, id uuid.UUID) (store.FieldMapping, error) {
	fm, err := s.store.GetMapping(ctx, id)
	if err != nil {
		return store.FieldMapping{}, notFound(err, ErrMappingNotFound, id)
	}
	return fm, nil
}

// CreateMapping adds a field type. Variations are trimmed and de-duplicated
// ignoring case.
func (s *Service) CreateMapping(ctx context.Context, in MappingInput) (store.FieldMapping, error) {
	ft, err := in.validate()
	if err != nil {
		return store.FieldMapping{}, err
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}

	fm, err := s.store.CreateMapping(ctx, store.FieldMapping{
		FieldType:   ft,
		Variations:  schema.MergeVariations(nil, in.Variations...),
		Description: strings.TrimSpace(in.Description),
		Active:      active,
	})
	if err != nil {
		return store.FieldMapping{}, fmt.Errorf("create mapping: %w", err)
	}

	slog.Info("field mapping created", "field_type", fm.FieldType, "variations", len(fm.Variations))
	return fm, nil
}

// UpdateMapping replaces a mapping's field type, variations and description.
func (s *Service) UpdateMapping(ctx context.Context, id uuid.UUID, in MappingInput) (store.FieldMapping, error) {
	ft, err := in.validate()
	if err != nil {
		return store.FieldMapping{}, err
	}

	fm, err := s.GetMapping(ctx, id)
	if err != nil {
		return store.FieldMapping{}, err
	}

	fm.FieldType = ft
	fm.Variations = schema.MergeVariations(nil, in.Variations...)
	fm.Description = strings.TrimSpace(in.Description)
	if in.Active != nil {
		fm.Active = *in.Active
	}

	out, err := s.store.UpdateMapping(ctx, fm)
	if err != nil {
		return store.FieldMapping{}, fmt.Errorf("update mapping: %w", notFound(err, ErrMappingNotFound, id))
	}
	return out, nil
}

func (s *Service) DeleteMapping(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteMapping(ctx, id); err != nil {
		return fmt.Errorf("delete mapping: %w", notFound(err, ErrMappingNotFound, id))
	}
	slog.Info("field mapping deleted", "mapping_id", id)
	return nil
}

// AddVariation appends a column name to an existing field type. Adding a
// name already present (ignoring case) is a no-op.
func (s *Service) AddVariation(ctx context.Context, id uuid.UUID, variation string) (store.FieldMapping, error) {
	variation = strings.TrimSpace(variation)
	if variation == "" {
		return store.FieldMapping{}, fmt.Errorf("%w: variation is required", ErrInvalidMapping)
	}

	fm, err := s.GetMapping(ctx, id)
	if err != nil {
		return store.FieldMapping{}, err
	}

	merged := schema.MergeVariations(fm.Variations, variation)
	if len(merged) == len(fm.Variations) {
		return fm, nil
	}
	fm.Variations = merged

	out, err := s.store.UpdateMapping(ctx, fm)
	if err != nil {
		return store.FieldMapping{}, fmt.Errorf("add variation: %w", notFound(err, ErrMappingNotFound, id))
	}
	return out, nil
}

// SeedResult counts what SeedMappings changed.
type SeedResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// SeedMappings makes every field type of cat present in the store. Missing
// types are created; existing ones gain any variations they lack. Nothing
// is removed, so seeding is safe to repeat.
func (s *Service) SeedMappings(ctx context.Context, cat *schema.Catalog) (SeedResult, error) {
	var res SeedResult

	for _, ft := range cat.FieldTypes() {
		variations := cat.Variations(ft)

		existing, err := s.store.GetMappingByType(ctx, ft)
		switch {
		case err == nil:
			merged := schema.MergeVariations(existing.Variations, variations...)
			if len(merged) == len(existing.Variations) {
				continue
			}
			existing.Variations = merged
			if _, err := s.store.UpdateMapping(ctx, existing); err != nil {
				return res, fmt.Errorf("seed %s: %w", ft, err)
			}
			res.Updated++

		case isNotFound(err):
			if _, err := s.store.CreateMapping(ctx, store.FieldMapping{
				FieldType:  ft,
				Variations: variations,
				Active:     true,
			}); err != nil {
				return res, fmt.Errorf("seed %s: %w", ft, err)
			}
			res.Created++

		default:
			return res, fmt.Errorf("seed %s: %w", ft, err)
		}
	}

	slog.Info("field mappings seeded", "created", res.Created, "updated", res.Updated)
	return res, nil
}

// SeedCatalog returns the catalog to seed from: the YAML file at path, or
// the built-in catalog when path is empty.
func SeedCatalog(path string) (*schema.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return schema.DefaultCatalog(), nil
	}
	cat, err := schema.LoadCatalogYAML(path)
	if err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	return cat, nil
}
