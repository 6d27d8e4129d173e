package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"templatehub/internal/template/models"
	id "templatehub/pkg/domain"
	"templatehub/pkg/platform/sentinel"
)

type versionKey struct {
	templateID id.TemplateID
	version    int
}

// InMemoryStore is a map-backed Store for tests and local development. It
// enforces the same (templateId, version) uniqueness the database does.
type InMemoryStore struct {
	mu        sync.RWMutex
	templates map[versionKey]models.MasterTemplate
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{templates: make(map[versionKey]models.MasterTemplate)}
}

func (s *InMemoryStore) Insert(_ context.Context, template models.MasterTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := versionKey{templateID: template.TemplateID, version: template.Version}
	if _, exists := s.templates[key]; exists {
		return sentinel.ErrConflict
	}
	s.templates[key] = template
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, template models.MasterTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := versionKey{templateID: template.TemplateID, version: template.Version}
	existing, exists := s.templates[key]
	if !exists || existing.Archived {
		return sentinel.ErrNotFound
	}
	template.CreatedBy = existing.CreatedBy
	template.CreatedAt = existing.CreatedAt
	s.templates[key] = template
	return nil
}

func (s *InMemoryStore) Exists(_ context.Context, templateID id.TemplateID, version int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.templates[versionKey{templateID: templateID, version: version}]
	return exists, nil
}

func (s *InMemoryStore) GetByIDAndVersion(_ context.Context, templateID id.TemplateID, version int) (models.MasterTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	template, exists := s.templates[versionKey{templateID: templateID, version: version}]
	if !exists || template.Archived {
		return models.MasterTemplate{}, sentinel.ErrNotFound
	}
	return template, nil
}

func (s *InMemoryStore) GetAllVersions(_ context.Context, templateID id.TemplateID) ([]models.MasterTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := make([]models.MasterTemplate, 0)
	for key, template := range s.templates {
		if key.templateID == templateID && !template.Archived {
			versions = append(versions, template)
		}
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Version > versions[j].Version })
	return versions, nil
}

func (s *InMemoryStore) FindByTypeAndVersion(_ context.Context, templateType string, version int) (models.MasterTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, template := range s.templates {
		if template.TemplateType == templateType && template.Version == version && !template.Archived {
			return template, nil
		}
	}
	return models.MasterTemplate{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindLatestActiveByType(_ context.Context, templateType string, at time.Time) (models.MasterTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		best  models.MasterTemplate
		found bool
	)
	for _, template := range s.templates {
		if template.TemplateType != templateType || template.Archived || !template.ActiveFlag {
			continue
		}
		if !template.IsValidAt(at) {
			continue
		}
		if !found || template.Version > best.Version {
			best = template
			found = true
		}
	}
	if !found {
		return models.MasterTemplate{}, sentinel.ErrNotFound
	}
	return best, nil
}

func (s *InMemoryStore) ListActiveByLineOfBusiness(_ context.Context, lineOfBusiness string, at time.Time) ([]models.MasterTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]models.MasterTemplate, 0)
	for _, template := range s.templates {
		if template.LineOfBusiness != lineOfBusiness || template.Archived || !template.ActiveFlag {
			continue
		}
		if !template.IsValidAt(at) {
			continue
		}
		matched = append(matched, template)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Version > matched[j].Version })
	return matched, nil
}

func (s *InMemoryStore) List(_ context.Context, filter models.ListFilter, page models.Page) ([]models.MasterTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := s.matching(filter)
	if page.Offset >= len(matched) {
		return []models.MasterTemplate{}, nil
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

func (s *InMemoryStore) NextVersion(_ context.Context, templateID id.TemplateID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	max := 0
	for key := range s.templates {
		if key.templateID == templateID && key.version > max {
			max = key.version
		}
	}
	return max + 1, nil
}

func (s *InMemoryStore) TypeExists(_ context.Context, templateType string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, template := range s.templates {
		if template.TemplateType == templateType && template.Version == 1 && !template.Archived {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) Archive(_ context.Context, templateID id.TemplateID, version int, actor string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := versionKey{templateID: templateID, version: version}
	template, exists := s.templates[key]
	if !exists || template.Archived {
		return 0, nil
	}
	template.Archived = true
	template.ArchivedAt = &at
	template.UpdatedBy = actor
	template.UpdatedAt = at
	s.templates[key] = template
	return 1, nil
}

// matching returns non-archived templates passing the filter, newest first,
// matching the ordering the SQL store uses so pagination behaves the same.
func (s *InMemoryStore) matching(filter models.ListFilter) []models.MasterTemplate {
	matched := make([]models.MasterTemplate, 0)
	for _, template := range s.templates {
		if template.Archived {
			continue
		}
		if filter.LineOfBusiness != nil && template.LineOfBusiness != *filter.LineOfBusiness {
			continue
		}
		if filter.TemplateType != nil && template.TemplateType != *filter.TemplateType {
			continue
		}
		if filter.ActiveFlag != nil && template.ActiveFlag != *filter.ActiveFlag {
			continue
		}
		if filter.CommunicationType != nil && template.CommunicationType != *filter.CommunicationType {
			continue
		}
		matched = append(matched, template)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].Version > matched[j].Version
	})
	return matched
}
