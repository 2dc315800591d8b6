package decision

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders a Result as a Markdown string.
func RenderMarkdown(result *Result) string {
	var sb strings.Builder

	sb.WriteString("# Drift Verdict Report\n\n")
	sb.WriteString(fmt.Sprintf("## Verdict: %s\n\n", result.Verdict))

	sb.WriteString("## Criteria\n\n")
	sb.WriteString("| # | Criterion | Threshold | Actual | Status |\n")
	sb.WriteString("|---|-----------|-----------|--------|--------|\n")
	for i, c := range result.Criteria {
		status := "PASS"
		if !c.Pass {
			status = "FAIL"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, c.Name, c.Threshold, c.Actual, status))
	}
	sb.WriteString("\n")

	passed := 0
	for _, c := range result.Criteria {
		if c.Pass {
			passed++
		}
	}
	sb.WriteString(fmt.Sprintf("Criteria: %d/%d passed\n\n", passed, len(result.Criteria)))

	sb.WriteString("## Summary\n\n")
	sb.WriteString(result.Summary)
	sb.WriteString("\n")
	if passed < len(result.Criteria) {
		sb.WriteString("\n")
		for _, c := range result.Criteria {
			if !c.Pass {
				sb.WriteString(fmt.Sprintf("- Criterion failed: %s (actual: %s)\n", c.Name, c.Actual))
			}
		}
	}

	return sb.String()
}
