package mcpserver

import (
	"fmt"
	"sort"
	"strings"

	"knowledgecore/internal/backend"
	"knowledgecore/internal/fleet"
	"knowledgecore/internal/reconciler"
)

// maxObjectTypes bounds the per-type lines of the graph statistics.
const maxObjectTypes = 10

func formatSpaces(out *ListSpacesOutput) string {
	if len(out.Spaces) == 0 {
		return fmt.Sprintf("No spaces found in '%s' profile", out.Profile)
	}
	lines := []string{fmt.Sprintf("Spaces in '%s' profile:", out.Profile)}
	for _, space := range out.Spaces {
		icon := space.Icon
		if icon == "" {
			icon = "📁"
		}
		lines = append(lines, fmt.Sprintf("  %s %s (ID: %s)", icon, space.Name, space.ID))
	}
	return strings.Join(lines, "\n")
}

func formatSearch(out *SearchGlobalOutput) string {
	if len(out.Objects) == 0 {
		return fmt.Sprintf("No results found for '%s'", out.Query)
	}
	lines := []string{fmt.Sprintf("Found %d results for '%s':", out.Total, out.Query)}
	for _, obj := range out.Objects {
		lines = append(lines, fmt.Sprintf("  - %s (Type: %s, ID: %s)", obj.Name, obj.TypeID, obj.ID))
	}
	return strings.Join(lines, "\n")
}

func formatStats(out *GraphStatsOutput) string {
	stats := out.Stats
	lines := []string{
		fmt.Sprintf("Graph Statistics (%s):", out.Profile),
		fmt.Sprintf("  Spaces: %d", stats.TotalSpaces),
		fmt.Sprintf("  Types: %d", stats.TotalTypes),
		fmt.Sprintf("  Relations: %d", stats.TotalRelations),
		fmt.Sprintf("  Objects: %d", stats.TotalObjects),
		fmt.Sprintf("  Storage: %.2f MB", float64(stats.StorageBytes)/1024/1024),
	}

	if len(stats.ObjectsByType) > 0 {
		names := make([]string, 0, len(stats.ObjectsByType))
		for name := range stats.ObjectsByType {
			names = append(names, name)
		}
		// Largest first, then by name.
		sort.Slice(names, func(i, j int) bool {
			ci, cj := stats.ObjectsByType[names[i]], stats.ObjectsByType[names[j]]
			if ci != cj {
				return ci > cj
			}
			return names[i] < names[j]
		})
		if len(names) > maxObjectTypes {
			names = names[:maxObjectTypes]
		}
		lines = append(lines, "  Objects by Type:")
		for _, name := range names {
			lines = append(lines, fmt.Sprintf("    - %s: %d", name, stats.ObjectsByType[name]))
		}
	}
	return strings.Join(lines, "\n")
}

func formatOntologyResult(result *reconciler.Result) string {
	lines := []string{result.Message}
	if len(result.CreatedRelations) > 0 {
		lines = append(lines, "", "Created Relations: "+strings.Join(result.CreatedRelations, ", "))
	}
	if len(result.CreatedTypes) > 0 {
		lines = append(lines, "Created Types: "+strings.Join(result.CreatedTypes, ", "))
	}
	if len(result.SkippedRelations) > 0 {
		lines = append(lines, "Existing Relations: "+strings.Join(result.SkippedRelations, ", "))
	}
	if len(result.SkippedTypes) > 0 {
		lines = append(lines, "Existing Types: "+strings.Join(result.SkippedTypes, ", "))
	}
	if result.DryRun {
		if len(result.Diff.MissingRelations) > 0 {
			lines = append(lines, "Missing Relations: "+strings.Join(result.Diff.MissingRelations, ", "))
		}
		if len(result.Diff.MissingTypes) > 0 {
			lines = append(lines, "Missing Types: "+strings.Join(result.Diff.MissingTypes, ", "))
		}
	}
	for _, w := range result.Warnings {
		lines = append(lines, "Warning: "+w)
	}
	return strings.Join(lines, "\n")
}

func formatFleetStatus(statuses map[string]fleet.HealthStatus) string {
	if len(statuses) == 0 {
		return "No profiles configured"
	}
	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := []string{"Fleet status:"}
	for _, name := range names {
		st := statuses[name]
		line := fmt.Sprintf("  %s: %s", name, st.Status)
		if st.Error != "" {
			line += " (" + st.Error + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func objectName(obj backend.Object) string {
	if obj.Name == "" {
		return "Untitled"
	}
	return obj.Name
}

func formatBriefing(out *DailyBriefingOutput) string {
	lines := []string{
		"# Daily Briefing",
		fmt.Sprintf("*%s*", out.GeneratedAt.Format("2006-01-02 15:04 UTC")),
		"",
		fmt.Sprintf("## Activity Summary (Last %d hours)", out.Hours),
		"",
	}
	if len(out.Groups) == 0 {
		lines = append(lines, "*No activity in this period.*")
		return strings.Join(lines, "\n")
	}

	for _, group := range out.Groups {
		lines = append(lines, fmt.Sprintf("### %s (%d)", group.TypeName, len(group.Objects)))
		for i, obj := range group.Objects {
			if i == briefingObjectsPerType {
				lines = append(lines, fmt.Sprintf("- *...and %d more*", len(group.Objects)-briefingObjectsPerType))
				break
			}
			lines = append(lines, "- "+objectName(obj))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
