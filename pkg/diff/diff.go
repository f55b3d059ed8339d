// Package diff compares parsed configurations, either as text or as trees.
package diff

import (
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/psaab/fgtconf/pkg/config"
)

// Unified returns a unified diff of the written configurations, without
// header comments. It returns "" when both texts are identical.
func Unified(a, b *config.Config, fromFile, toFile string) (string, error) {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(a.String()),
		B:        difflib.SplitLines(b.String()),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", fmt.Errorf("unified diff: %w", err)
	}
	return text, nil
}

// Op is the kind of a Change.
type Op int

const (
	Added Op = iota
	Removed
	Changed
)

func (o Op) String() string {
	switch o {
	case Added:
		return "+"
	case Removed:
		return "-"
	default:
		return "~"
	}
}

// Change is one difference between two trees. From is nil for Added and To
// is nil for Removed.
type Change struct {
	Op   Op
	Path []string
	From config.Node
	To   config.Node
}

// String renders the change on one line, e.g.
// `~ system global/hostname: "fw1" -> "fw2"`.
func (c Change) String() string {
	path := strings.Join(c.Path, "/")
	switch c.Op {
	case Added:
		return "+ " + path + describe(c.To)
	case Removed:
		return "- " + path + describe(c.From)
	}
	return "~ " + path + ":" + strings.TrimPrefix(describe(c.From), ":") + " ->" + strings.TrimPrefix(describe(c.To), ":")
}

func describe(n config.Node) string {
	switch n := n.(type) {
	case *config.Set:
		return ": " + strings.Join(n.Values(), " ")
	case *config.Unset:
		return ": (unset)"
	case *config.Object:
		return fmt.Sprintf(": (object, %d items)", n.Len())
	case *config.Table:
		return fmt.Sprintf(": (table, %d entries)", n.Len())
	}
	return ""
}

// Tree compares two configurations. Changes in vdoms are reported under
// "vdom/<name>". Key order is not compared.
func Tree(a, b *config.Config) []Change {
	changes := Nodes(a.Root, b.Root, nil)
	return append(changes, Nodes(a.VDOMs, b.VDOMs, []string{"vdom"})...)
}

// Nodes compares two subtrees found at path. Removed and changed keys are
// reported in the order of a, added keys in the order of b.
func Nodes(a, b config.Node, path []string) []Change {
	if a.Kind() != b.Kind() {
		if config.IsEmptyContainer(a) && config.IsEmptyContainer(b) {
			return nil
		}
		return []Change{{Op: Changed, Path: path, From: a, To: b}}
	}
	switch a := a.(type) {
	case *config.Set:
		if !config.Equal(a, b) {
			return []Change{{Op: Changed, Path: path, From: a, To: b}}
		}
	case *config.Object:
		return children(path, objectView(a), objectView(b.(*config.Object)))
	case *config.Table:
		return children(path, tableView(a), tableView(b.(*config.Table)))
	}
	return nil
}

// view gives objects and tables a common shape.
type view struct {
	all iter.Seq2[string, config.Node]
	get func(string) (config.Node, bool)
}

func objectView(o *config.Object) view {
	return view{all: o.All(), get: o.Get}
}

func tableView(t *config.Table) view {
	return view{
		all: func(yield func(string, config.Node) bool) {
			for id, e := range t.All() {
				if !yield(id, e) {
					return
				}
			}
		},
		get: func(id string) (config.Node, bool) {
			e, ok := t.Get(id)
			if !ok {
				return nil, false
			}
			return e, true
		},
	}
}

func children(path []string, a, b view) []Change {
	var changes []Change
	sub := func(k string) []string {
		return append(slices.Clip(path), k)
	}
	for k, an := range a.all {
		bn, ok := b.get(k)
		if !ok {
			changes = append(changes, Change{Op: Removed, Path: sub(k), From: an})
			continue
		}
		changes = append(changes, Nodes(an, bn, sub(k))...)
	}
	for k, bn := range b.all {
		if _, ok := a.get(k); !ok {
			changes = append(changes, Change{Op: Added, Path: sub(k), To: bn})
		}
	}
	return changes
}

// Values describes how the values of a Set changed, marking removed text
// as [-text-] and inserted text as {+text+}.
func Values(from, to *config.Set) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(strings.Join(from.Values(), " "), strings.Join(to.Values(), " "), false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+" + d.Text + "+}")
		default:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}

var (
	addColor    = color.New(color.FgGreen).SprintFunc()
	removeColor = color.New(color.FgRed).SprintFunc()
	changeColor = color.New(color.FgYellow).SprintFunc()
	hunkColor   = color.New(color.FgCyan).SprintFunc()
)

// Write prints changes one per line. Changed sets show an inline value
// diff. Output is colored unless color.NoColor is set.
func Write(w io.Writer, changes []Change) error {
	for _, c := range changes {
		var line string
		switch c.Op {
		case Added:
			line = addColor(c.String())
		case Removed:
			line = removeColor(c.String())
		default:
			fs, okf := c.From.(*config.Set)
			ts, okt := c.To.(*config.Set)
			if okf && okt {
				line = changeColor("~ "+strings.Join(c.Path, "/")+": ") + Values(fs, ts)
			} else {
				line = changeColor(c.String())
			}
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// Colorize colors the lines of a unified diff.
func Colorize(unified string) string {
	lines := strings.SplitAfter(unified, "\n")
	for i, ln := range lines {
		switch {
		case strings.HasPrefix(ln, "+++"), strings.HasPrefix(ln, "---"):
		case strings.HasPrefix(ln, "+"):
			lines[i] = colorLine(addColor, ln)
		case strings.HasPrefix(ln, "-"):
			lines[i] = colorLine(removeColor, ln)
		case strings.HasPrefix(ln, "@@"):
			lines[i] = colorLine(hunkColor, ln)
		}
	}
	return strings.Join(lines, "")
}

func colorLine(paint func(...any) string, ln string) string {
	body, nl := strings.CutSuffix(ln, "\n")
	if nl {
		return paint(body) + "\n"
	}
	return paint(body)
}
