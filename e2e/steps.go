package e2e

import (
	"github.com/cucumber/godog"

	"templatehub/e2e/steps/template"
	"templatehub/e2e/steps/vendor"
)

// RegisterSteps registers all step definitions from the modular packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Template lifecycle steps
	template.RegisterSteps(ctx, tc)

	// Vendor mapping and routing steps
	vendor.RegisterSteps(ctx, tc)
}
