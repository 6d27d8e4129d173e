package template

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the main test context these steps need.
type TestContext interface {
	Do(method, path string, body any) error
	LastStatus() int
	ResponseField(field string) (any, error)
	TemplateID() string
	SetTemplateID(id string)
}

// RegisterSteps registers template lifecycle step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &templateSteps{tc: tc}

	ctx.Step(`^I create a "([^"]*)" template named "([^"]*)"$`, steps.createTemplate)
	ctx.Step(`^I save the template id$`, steps.saveTemplateID)
	ctx.Step(`^I fork version (\d+) with name "([^"]*)"$`, steps.forkVersion)
	ctx.Step(`^I archive template version (\d+)$`, steps.archiveVersion)
	ctx.Step(`^I fetch template version (\d+)$`, steps.fetchVersion)
	ctx.Step(`^the response status is (\d+)$`, steps.assertStatus)
	ctx.Step(`^the response field "([^"]*)" is "([^"]*)"$`, steps.assertField)
}

type templateSteps struct {
	tc TestContext
}

func (s *templateSteps) createTemplate(ctx context.Context, templateType, name string) error {
	return s.tc.Do(http.MethodPost, "/templates", map[string]any{
		"templateName": name,
		"templateType": templateType,
		"activeFlag":   true,
	})
}

func (s *templateSteps) saveTemplateID(ctx context.Context) error {
	id, err := s.tc.ResponseField("masterTemplateId")
	if err != nil {
		return err
	}
	s.tc.SetTemplateID(id.(string))
	return nil
}

func (s *templateSteps) forkVersion(ctx context.Context, version int, name string) error {
	path := fmt.Sprintf("/templates/%s/versions/%d?newVersion=true", s.tc.TemplateID(), version)
	return s.tc.Do(http.MethodPatch, path, map[string]any{"templateName": name})
}

func (s *templateSteps) archiveVersion(ctx context.Context, version int) error {
	path := fmt.Sprintf("/templates/%s/versions/%d", s.tc.TemplateID(), version)
	return s.tc.Do(http.MethodDelete, path, nil)
}

func (s *templateSteps) fetchVersion(ctx context.Context, version int) error {
	path := fmt.Sprintf("/templates/%s/versions/%d", s.tc.TemplateID(), version)
	return s.tc.Do(http.MethodGet, path, nil)
}

func (s *templateSteps) assertStatus(ctx context.Context, expected int) error {
	if s.tc.LastStatus() != expected {
		return fmt.Errorf("expected status %d, got %d", expected, s.tc.LastStatus())
	}
	return nil
}

func (s *templateSteps) assertField(ctx context.Context, field, expected string) error {
	value, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprintf("%v", value) != expected {
		return fmt.Errorf("expected %s=%q, got %v", field, expected, value)
	}
	return nil
}
