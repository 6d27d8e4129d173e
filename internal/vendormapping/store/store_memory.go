package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"templatehub/internal/vendormapping/models"
	id "templatehub/pkg/domain"
	"templatehub/pkg/platform/sentinel"
)

// InMemoryStore is a map-backed Store for tests and local development. It
// enforces the same duplicate-tuple uniqueness the database does.
type InMemoryStore struct {
	mu       sync.RWMutex
	mappings map[id.VendorID]models.VendorMapping
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{mappings: make(map[id.VendorID]models.VendorMapping)}
}

func (s *InMemoryStore) Insert(_ context.Context, mapping models.VendorMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.mappings[mapping.VendorID]; exists {
		return sentinel.ErrConflict
	}
	for _, existing := range s.mappings {
		if existing.Archived {
			continue
		}
		if existing.TemplateID == mapping.TemplateID &&
			existing.TemplateVersion == mapping.TemplateVersion &&
			existing.Vendor == mapping.Vendor &&
			existing.VendorType == mapping.VendorType {
			return sentinel.ErrConflict
		}
	}
	s.mappings[mapping.VendorID] = mapping
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, mapping models.VendorMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, exists := s.mappings[mapping.VendorID]
	if !exists || existing.Archived {
		return sentinel.ErrNotFound
	}
	mapping.CreatedBy = existing.CreatedBy
	mapping.CreatedAt = existing.CreatedAt
	s.mappings[mapping.VendorID] = mapping
	return nil
}

func (s *InMemoryStore) Exists(_ context.Context, vendorID id.VendorID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.mappings[vendorID]
	return exists, nil
}

func (s *InMemoryStore) GetByID(_ context.Context, vendorID id.VendorID) (models.VendorMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mapping, exists := s.mappings[vendorID]
	if !exists || mapping.Archived {
		return models.VendorMapping{}, sentinel.ErrNotFound
	}
	return mapping, nil
}

func (s *InMemoryStore) ListByTemplate(_ context.Context, templateID id.TemplateID) ([]models.VendorMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]models.VendorMapping, 0)
	for _, mapping := range s.mappings {
		if mapping.TemplateID == templateID && !mapping.Archived {
			matched = append(matched, mapping)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].TemplateVersion != matched[j].TemplateVersion {
			return matched[i].TemplateVersion > matched[j].TemplateVersion
		}
		return matched[i].PriorityOrder < matched[j].PriorityOrder
	})
	return matched, nil
}

func (s *InMemoryStore) ListByTemplateVersion(_ context.Context, templateID id.TemplateID, version int) ([]models.VendorMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]models.VendorMapping, 0)
	for _, mapping := range s.mappings {
		if mapping.TemplateID == templateID && mapping.TemplateVersion == version && !mapping.Archived {
			matched = append(matched, mapping)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].PriorityOrder < matched[j].PriorityOrder })
	return matched, nil
}

func (s *InMemoryStore) FindPrimary(_ context.Context, templateID id.TemplateID, version int, vendorType string) ([]models.VendorMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]models.VendorMapping, 0)
	for _, mapping := range s.mappings {
		if mapping.TemplateID == templateID && mapping.TemplateVersion == version &&
			mapping.VendorType == vendorType && mapping.PrimaryFlag && mapping.ActiveFlag && !mapping.Archived {
			matched = append(matched, mapping)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].VendorID.String() < matched[j].VendorID.String()
	})
	return matched, nil
}

func (s *InMemoryStore) FindActiveForRouting(_ context.Context, templateID id.TemplateID, version int, vendorType string) ([]models.VendorMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]models.VendorMapping, 0)
	for _, mapping := range s.mappings {
		if mapping.TemplateID != templateID || mapping.TemplateVersion != version ||
			mapping.VendorType != vendorType || mapping.Archived {
			continue
		}
		if !mapping.Routable() {
			continue
		}
		matched = append(matched, mapping)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].PriorityOrder < matched[j].PriorityOrder })
	return matched, nil
}

func (s *InMemoryStore) List(_ context.Context, filter models.ListFilter, page models.Page) ([]models.VendorMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := s.matching(filter)
	if page.Offset >= len(matched) {
		return []models.VendorMapping{}, nil
	}
	end := page.Offset + page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[page.Offset:end], nil
}

func (s *InMemoryStore) Count(_ context.Context, filter models.ListFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.matching(filter))), nil
}

func (s *InMemoryStore) ExistsDuplicate(_ context.Context, templateID id.TemplateID, version int, vendor, vendorType string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, mapping := range s.mappings {
		if mapping.TemplateID == templateID && mapping.TemplateVersion == version &&
			mapping.Vendor == vendor && mapping.VendorType == vendorType && !mapping.Archived {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) UpdateHealth(_ context.Context, vendorID id.VendorID, vendorStatus, healthStatus string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mapping, exists := s.mappings[vendorID]
	if !exists || mapping.Archived {
		return 0, nil
	}
	mapping.VendorStatus = vendorStatus
	mapping.LastHealthStatus = healthStatus
	mapping.LastHealthCheck = &at
	mapping.UpdatedAt = at
	s.mappings[vendorID] = mapping
	return 1, nil
}

func (s *InMemoryStore) Archive(_ context.Context, vendorID id.VendorID, actor string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mapping, exists := s.mappings[vendorID]
	if !exists || mapping.Archived {
		return 0, nil
	}
	mapping.Archived = true
	mapping.ArchivedAt = &at
	mapping.UpdatedBy = actor
	mapping.UpdatedAt = at
	s.mappings[vendorID] = mapping
	return 1, nil
}

func (s *InMemoryStore) matching(filter models.ListFilter) []models.VendorMapping {
	matched := make([]models.VendorMapping, 0)
	for _, mapping := range s.mappings {
		if mapping.Archived {
			continue
		}
		if filter.TemplateID != nil && mapping.TemplateID != *filter.TemplateID {
			continue
		}
		if filter.VendorType != nil && mapping.VendorType != *filter.VendorType {
			continue
		}
		if filter.Vendor != nil && mapping.Vendor != *filter.Vendor {
			continue
		}
		if filter.ActiveFlag != nil && mapping.ActiveFlag != *filter.ActiveFlag {
			continue
		}
		matched = append(matched, mapping)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].VendorID.String() < matched[j].VendorID.String()
	})
	return matched
}
