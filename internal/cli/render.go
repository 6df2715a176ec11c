package cli

import (
	"fmt"
	"sort"

	"knowledgecore/internal/config"
	"knowledgecore/internal/fleet"
	"knowledgecore/internal/identity"
	"knowledgecore/internal/reconciler"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// ProfileInfo describes one configured fleet member. The credential is never
// included, only whether one is set.
type ProfileInfo struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	Default    bool   `json:"default"`
	Credential string `json:"credential"`
}

// DescribeProfiles lists the configured profiles in fixed order.
func DescribeProfiles(settings config.Settings) []ProfileInfo {
	defaultProfile := identity.Name(settings.DefaultProfile)
	var out []ProfileInfo
	for _, p := range settings.Profiles() {
		credential := "-"
		if !p.Credential.IsEmpty() {
			credential = p.Credential.String()
		}
		out = append(out, ProfileInfo{
			Name:       string(p.Name),
			URL:        p.URL,
			Default:    p.Name == defaultProfile,
			Credential: credential,
		})
	}
	return out
}

// RenderProfiles prints the configured profiles.
func (p *Printer) RenderProfiles(profiles []ProfileInfo) error {
	if p.Structured() {
		return p.PrintData(profiles)
	}
	if len(profiles) == 0 {
		fmt.Fprint(p.out, formatEmptyMessage("📋", "No profiles configured"))
		return nil
	}

	t := p.newTable("PROFILE", "URL", "DEFAULT", "CREDENTIAL")
	for _, info := range profiles {
		def := ""
		if info.Default {
			def = text.FgGreen.Sprint("*")
		}
		t.AppendRow(table.Row{info.Name, info.URL, def, info.Credential})
	}
	t.Render()
	return nil
}

// RenderHealth prints the outcome of a fleet health check.
func (p *Printer) RenderHealth(statuses map[string]fleet.HealthStatus) error {
	if p.Structured() {
		return p.PrintData(statuses)
	}
	if len(statuses) == 0 {
		fmt.Fprint(p.out, formatEmptyMessage("📋", "No fleet members to check"))
		return nil
	}

	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	sort.Strings(names)

	t := p.newTable("PROFILE", "STATUS", "DETAIL")
	for _, name := range names {
		status := statuses[name]
		state := text.FgGreen.Sprint(status.Status)
		detail := ""
		if !status.Healthy() {
			state = text.FgRed.Sprint(status.Status)
			detail = status.Error
		} else if v, ok := status.Response["version"]; ok {
			detail = fmt.Sprintf("version %v", v)
		}
		t.AppendRow(table.Row{name, state, detail})
	}
	t.Render()
	return nil
}

// RenderResult prints a reconciliation result.
func (p *Printer) RenderResult(result *reconciler.Result) error {
	if p.Structured() {
		return p.PrintData(result)
	}

	rows := 0
	t := p.newTable("KIND", "NAME", "ACTION")
	add := func(kind string, names []string, action string) {
		for _, name := range names {
			t.AppendRow(table.Row{kind, name, action})
			rows++
		}
	}
	if result.DryRun {
		add("relation", result.Diff.MissingRelations, text.FgYellow.Sprint("would create"))
		add("type", result.Diff.MissingTypes, text.FgYellow.Sprint("would create"))
	} else {
		add("relation", result.CreatedRelations, text.FgGreen.Sprint("created"))
		add("type", result.CreatedTypes, text.FgGreen.Sprint("created"))
	}
	add("relation", result.SkippedRelations, "exists")
	add("type", result.SkippedTypes, "exists")
	if rows > 0 {
		t.Render()
	}

	fmt.Fprintf(p.out, "%s %s\n", text.FgHiBlue.Sprint("Result:"), result.Message)
	for _, w := range result.Warnings {
		fmt.Fprintf(p.out, "%s %s\n", text.FgYellow.Sprint("Warning:"), w)
	}
	return nil
}
