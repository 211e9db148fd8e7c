package ui

import (
	"fmt"
	"strings"
	"time"

	syncengine "github.com/jrabinow/kpsync/internal/sync"
)

// RenderPlan renders the full plan as an indented tree:
//
//	Github  (authoritative: work, modified 2026-08-01 10:42)
//	  personal
//	    Password  ••••••  →  ••••••
//	    URL       (absent)  →  https://github.com/login
//
// Secret values stay masked unless reveal is set.
func RenderPlan(plan *syncengine.Plan, reveal bool) string {
	var b strings.Builder

	for i := range plan.Items {
		item := &plan.Items[i]

		if item.Skipped {
			fmt.Fprintf(&b, "%s  %s\n",
				RenderTitle(item.Identifier.Raw),
				RenderWarn("skipped: found in a single database"))
			continue
		}

		fmt.Fprintf(&b, "%s  %s\n",
			RenderTitle(item.Identifier.Raw),
			RenderDim(fmt.Sprintf("(authoritative: %s, modified %s)",
				item.Source.Database,
				item.Source.Modified.Local().Format(time.DateTime))))

		if item.Consistent() {
			fmt.Fprintf(&b, "  %s\n", RenderPass("already consistent"))
			continue
		}

		for t := range item.Targets {
			target := &item.Targets[t]
			if !target.Changed() {
				fmt.Fprintf(&b, "  %s  %s\n", target.Database, RenderPass("up to date"))
				continue
			}

			if target.Create {
				folder := strings.Join(target.Folder, "/")
				if folder == "" {
					folder = "(root)"
				}
				fmt.Fprintf(&b, "  %s  %s\n", target.Database,
					RenderAccent(fmt.Sprintf("create entry in %s", folder)))
			} else {
				fmt.Fprintf(&b, "  %s\n", target.Database)
			}

			width := fieldWidth(target.Diff)
			for _, c := range target.Diff {
				fmt.Fprintf(&b, "    %-*s  %s  →  %s\n",
					width, c.Field,
					renderOld(c, reveal),
					renderValue(c.New, c.Secret, reveal))
			}
		}
	}

	return b.String()
}

// RenderReport renders the post-execution summary: one line per
// identifier, one line per attempted save.
func RenderReport(report *syncengine.Report) string {
	var b strings.Builder

	if report.DryRun {
		fmt.Fprintf(&b, "%s\n", RenderAccent("dry run: no database was modified"))
	}

	for _, item := range report.Items {
		switch item.Status {
		case syncengine.StatusSynced:
			fmt.Fprintf(&b, "%s %s  %s\n", RenderPass("✓"), item.Identifier,
				RenderDim(fmt.Sprintf("%d write(s)", item.Writes)))
		case syncengine.StatusConsistent:
			fmt.Fprintf(&b, "%s %s  %s\n", RenderPass("✓"), item.Identifier,
				RenderDim("already consistent"))
		case syncengine.StatusSkipped:
			fmt.Fprintf(&b, "%s %s  %s\n", RenderWarn("⚠"), item.Identifier,
				RenderDim("skipped: found in a single database"))
		}
	}

	for _, save := range report.Saves {
		if save.Err != nil {
			fmt.Fprintf(&b, "%s failed to save %s (%s): %v\n",
				RenderFail("✗"), save.Database, save.Path, save.Err)
			continue
		}
		fmt.Fprintf(&b, "%s saved %s  %s\n",
			RenderPass("✓"), save.Database, RenderDim(save.Path))
	}

	return b.String()
}

func renderOld(c syncengine.FieldChange, reveal bool) string {
	if !c.OldPresent {
		return RenderDim("(absent)")
	}
	return renderValue(c.Old, c.Secret, reveal)
}

func renderValue(value string, secret, reveal bool) string {
	if secret && !reveal {
		return Mask(value)
	}
	if value == "" {
		return RenderDim("(empty)")
	}
	return value
}

func fieldWidth(diff []syncengine.FieldChange) int {
	width := 0
	for _, c := range diff {
		if len(c.Field) > width {
			width = len(c.Field)
		}
	}
	return width
}
