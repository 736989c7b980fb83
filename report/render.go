package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
	"github.com/hokaccha/go-prettyjson"
	"github.com/xlab/treeprint"
)

// Output formats accepted by Write.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists the supported output formats.
var Formats = []string{FormatText, FormatJSON, FormatYAML}

var (
	bold   = color.New(color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

// Write renders d to w in the given format. An empty format means text.
// Colors follow color.NoColor.
func Write(w io.Writer, d *Document, format string) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		return WriteText(w, d)
	case FormatJSON:
		return WriteJSON(w, d, !color.NoColor)
	case FormatYAML:
		return WriteYAML(w, d)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// WriteText renders d as a tree: one branch per function, one leaf per path.
func WriteText(w io.Writer, d *Document) error {
	tree := treeprint.NewWithRoot(fmt.Sprintf("%s %s",
		bold(d.Program),
		faint(fmt.Sprintf("(%d paths, %d steps, run %s)", d.PathCount(), d.Steps, d.RunID)),
	))
	for _, f := range d.Functions {
		branch := tree.AddBranch(fmt.Sprintf("%s %s", cyan(f.Name), faint(fmt.Sprintf("func %d", f.Index))))
		for _, p := range f.Paths {
			branch.AddNode(fmt.Sprintf("%s %s", formatPCs(p.PCs), yellow(fmt.Sprintf("x%d", p.Count))))
		}
	}
	_, err := io.WriteString(w, tree.String())
	return err
}

func formatPCs(pcs []uint32) string {
	parts := make([]string, len(pcs))
	for i, pc := range pcs {
		parts[i] = strconv.FormatUint(uint64(pc), 10)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// WriteJSON renders d as indented JSON, colorized when pretty is set.
func WriteJSON(w io.Writer, d *Document, pretty bool) error {
	var data []byte
	var err error
	if pretty {
		data, err = prettyjson.Marshal(d)
	} else {
		data, err = json.MarshalIndent(d, "", "  ")
	}
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteYAML renders d as a YAML document.
func WriteYAML(w io.Writer, d *Document) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
