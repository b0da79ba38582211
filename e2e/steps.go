package e2e

import (
	"github.com/cucumber/godog"

	"registrar/e2e/steps/common"
	"registrar/e2e/steps/enrollment"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Generic requests and assertions
	common.RegisterSteps(ctx, tc)

	// Students, courses and enrollment rules
	enrollment.RegisterSteps(ctx, tc)
}
