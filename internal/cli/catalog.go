package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowcanvas/flowcanvas/internal/catalog"
	"github.com/flowcanvas/flowcanvas/internal/schema"
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

// catalogCmd is the parent command for component catalog operations.
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect component types",
}

var catalogListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List component types",
	Run: func(cmd *cobra.Command, args []string) {
		entries := catalog.All()
		if printFormatted(catalogView(entries)) {
			return
		}
		renderCatalog(os.Stdout, entries)
	},
}

var catalogFieldsCmd = &cobra.Command{
	Use:   "fields <type>",
	Short: "Show the editable fields of a component type",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		t := types.NodeType(args[0])
		if _, ok := catalog.Lookup(t); !ok {
			exitError("unknown component type %q (known: %s)", t, knownTypes())
		}
		fields := schema.FieldsFor(t, catalog.DefaultConfigFor(t))
		if printFormatted(fields) {
			return
		}
		if len(fields) == 0 {
			fmt.Printf("%s has no settings.\n", catalog.LabelFor(t))
			return
		}
		renderFields(os.Stdout, fields)
	},
}

func init() {
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogFieldsCmd)
}

type catalogEntry struct {
	Type          types.NodeType `json:"type" yaml:"type"`
	Label         string         `json:"label" yaml:"label"`
	Icon          string         `json:"icon" yaml:"icon"`
	Description   string         `json:"description" yaml:"description"`
	DefaultConfig types.Config   `json:"default_config" yaml:"default_config"`
}

func catalogView(entries []catalog.Entry) []catalogEntry {
	out := make([]catalogEntry, len(entries))
	for i, e := range entries {
		out[i] = catalogEntry{
			Type:          e.Type,
			Label:         e.Label,
			Icon:          e.Icon,
			Description:   e.Description,
			DefaultConfig: e.DefaultConfig(),
		}
	}
	return out
}

func knownTypes() string {
	names := make([]string, len(types.NodeTypes))
	for i, t := range types.NodeTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func renderCatalog(w io.Writer, entries []catalog.Entry) {
	table := newTable(w, "Type", "Label", "Description")
	for _, e := range entries {
		table.Append([]string{string(e.Type), e.Icon + " " + e.Label, e.Description})
	}
	table.Render()
}

func renderFields(w io.Writer, fields []schema.Field) {
	table := newTable(w, "Key", "Label", "Kind", "Default", "Constraints")
	for _, f := range fields {
		def := "-"
		if f.Default != nil {
			def = fmt.Sprint(f.Default)
		}
		table.Append([]string{f.Key, f.Label, string(f.Kind), def, constraints(f)})
	}
	table.Render()
}

func constraints(f schema.Field) string {
	var parts []string
	if f.Min != nil && f.Max != nil {
		parts = append(parts, fmt.Sprintf("%s..%s", formatFloat(*f.Min), formatFloat(*f.Max)))
	}
	if f.Step != nil {
		parts = append(parts, "step "+formatFloat(*f.Step))
	}
	if len(f.Options) > 0 {
		opts := make([]string, len(f.Options))
		for i, o := range f.Options {
			opts[i] = o.Value
		}
		parts = append(parts, strings.Join(opts, "|"))
	}
	if f.Optional {
		parts = append(parts, "optional")
	}
	if f.ReadOnly {
		parts = append(parts, "read-only")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
