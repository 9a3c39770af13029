package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/validation"
)

// ValidationMarkdown formats a validation result as a markdown report.
func ValidationMarkdown(d *domain.Diagram, res validation.Result) string {
	var sb strings.Builder

	name := "Untitled"
	if d != nil && strings.TrimSpace(d.Name) != "" {
		name = d.Name
	}
	fmt.Fprintf(&sb, "# %s\n\n", name)
	if d != nil {
		fmt.Fprintf(&sb, "%d node(s), %d edge(s)\n\n", len(d.Nodes), len(d.Edges))
	}
	fmt.Fprintf(&sb, "**%s**\n", res.Summary())

	section := func(title string, issues []validation.Issue) {
		if len(issues) == 0 {
			return
		}
		fmt.Fprintf(&sb, "\n## %s\n\n", title)
		for _, issue := range issues {
			if issue.ElementID != "" {
				fmt.Fprintf(&sb, "- `%s` %s (`%s`)\n", issue.Code, issue.Message, issue.ElementID)
			} else {
				fmt.Fprintf(&sb, "- `%s` %s\n", issue.Code, issue.Message)
			}
		}
	}
	section("Errors", res.Errors)
	section("Warnings", res.Warnings)

	return sb.String()
}
