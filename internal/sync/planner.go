package sync

import (
	"sort"
)

// FieldChange is one pending write: set Field to New on the target entry.
// Old is the target's current value ("" with OldPresent=false when the
// field does not exist there yet). Secret marks values that reports must
// mask.
type FieldChange struct {
	Field      string
	Old        string
	New        string
	OldPresent bool
	Secret     bool
}

// TargetChange is everything that must happen to one database for one
// identifier: either a field diff against an existing entry, or the
// creation of a missing entry carrying the authoritative copy's full
// field set.
type TargetChange struct {
	Database string

	// Entry is the existing target entry; nil when Create is set.
	Entry *ResolvedEntry

	// Create requests entry creation under Folder.
	Create bool
	Folder []string

	// Diff lists the field writes, ordered by field name. Empty means
	// the target is already consistent.
	Diff []FieldChange
}

// Changed reports whether applying this target performs any write.
func (t *TargetChange) Changed() bool {
	return t.Create || len(t.Diff) > 0
}

// PlanItem is the sync decision for one identifier: the authoritative
// source copy plus the per-database changes.
type PlanItem struct {
	Identifier Identifier
	Source     ResolvedEntry
	Targets    []TargetChange

	// Skipped carries over identifiers the resolver excluded
	// (insufficient targets); they appear in reports but never write.
	Skipped bool
}

// Consistent reports whether every target of this item is already in
// sync with the source.
func (p *PlanItem) Consistent() bool {
	for i := range p.Targets {
		if p.Targets[i].Changed() {
			return false
		}
	}
	return true
}

// Plan is the full, ordered set of writes for one run. Items follow the
// requested identifier order; targets follow the configured database
// order. The same inputs always produce the same plan.
type Plan struct {
	Items []PlanItem
}

// Writes counts the individual field writes and entry creations across
// the whole plan.
func (p *Plan) Writes() int {
	n := 0
	for _, item := range p.Items {
		for _, t := range item.Targets {
			if t.Create {
				n++
				continue
			}
			n += len(t.Diff)
		}
	}
	return n
}

// BuildPlan computes the sync plan for a validated resolution. Pure: no
// I/O, no mutation of the resolved entries.
//
// The authoritative copy is the one with the strictly greatest
// modification timestamp. On exact ties the earliest entry in configured
// database order wins, keeping repeated runs on unchanged inputs
// deterministic. Diffs are strict value inequality over the source's
// field set; fields present only on the target are left alone.
func BuildPlan(res *Resolution) *Plan {
	plan := &Plan{Items: make([]PlanItem, 0, len(res.Items))}

	for _, item := range res.Items {
		if item.Skipped {
			plan.Items = append(plan.Items, PlanItem{
				Identifier: item.Identifier,
				Source:     item.Entries[0],
				Skipped:    true,
			})
			continue
		}

		source := authoritative(item.Entries)
		pi := PlanItem{Identifier: item.Identifier, Source: source}

		for i := range item.Entries {
			target := item.Entries[i]
			if target.Database == source.Database {
				continue
			}
			pi.Targets = append(pi.Targets, TargetChange{
				Database: target.Database,
				Entry:    &item.Entries[i],
				Diff:     diffFields(source, target),
			})
		}

		for _, name := range item.CreateTargets {
			pi.Targets = append(pi.Targets, TargetChange{
				Database: name,
				Create:   true,
				Folder:   source.Entry.FolderPath(),
				Diff:     createDiff(source),
			})
		}

		plan.Items = append(plan.Items, pi)
	}

	return plan
}

// authoritative picks the most recently modified copy; ties go to the
// first in configured order.
func authoritative(entries []ResolvedEntry) ResolvedEntry {
	best := entries[0]
	for _, e := range entries[1:] {
		if e.Modified.After(best.Modified) {
			best = e
		}
	}
	return best
}

// diffFields lists the source fields whose value differs on the target.
func diffFields(source, target ResolvedEntry) []FieldChange {
	var diff []FieldChange
	for _, name := range sortedFields(source.Fields) {
		want := source.Fields[name]
		got, present := target.Fields[name]
		if present && got == want {
			continue
		}
		diff = append(diff, FieldChange{
			Field:      name,
			Old:        got,
			New:        want,
			OldPresent: present,
			Secret:     source.Entry.Secret(name),
		})
	}
	return diff
}

// createDiff turns the source's full field set into changes for a new
// entry.
func createDiff(source ResolvedEntry) []FieldChange {
	diff := make([]FieldChange, 0, len(source.Fields))
	for _, name := range sortedFields(source.Fields) {
		diff = append(diff, FieldChange{
			Field:  name,
			New:    source.Fields[name],
			Secret: source.Entry.Secret(name),
		})
	}
	return diff
}

func sortedFields(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
