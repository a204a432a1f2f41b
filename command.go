package dashboard

import (
	"context"
	"regexp"

	"github.com/oklahomer/go-sarah/v4"
)

var dashboardPattern = regexp.MustCompile(`^\.dashboard`)

// NewCommandProps creates a ".dashboard" command that replies with the dashboard's URL.
func NewCommandProps(botType sarah.BotType, d *Dashboard) (*sarah.CommandProps, error) {
	return sarah.NewCommandPropsBuilder().
		BotType(botType).
		Identifier("dashboard").
		MatchPattern(dashboardPattern).
		Func(func(_ context.Context, _ sarah.Input) (*sarah.CommandResponse, error) {
			return urlResponse(d.URL()), nil
		}).
		Instruction("Input .dashboard to get the link to the settings dashboard.").
		Build()
}

func urlResponse(url string) *sarah.CommandResponse {
	return &sarah.CommandResponse{
		Content: "Dashboard: " + url + dashboardPath,
	}
}
