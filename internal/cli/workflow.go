package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flowcanvas/flowcanvas/internal/client"
	"github.com/flowcanvas/flowcanvas/internal/codec"
	"github.com/flowcanvas/flowcanvas/internal/config"
	"github.com/flowcanvas/flowcanvas/internal/graph"
	"github.com/flowcanvas/flowcanvas/internal/session"
	"github.com/flowcanvas/flowcanvas/internal/workflow"
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

var (
	workflowSkip       int
	workflowLimit      int
	workflowImportInto string
	workflowExportFile string
)

// workflowCmd is the parent command for workflow operations.
var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Manage workflows",
	Long:  `Commands for managing workflows stored on a FlowCanvas server.`,
}

// workflowListCmd lists all workflows.
var workflowListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List all workflows",
	Long:    `List stored workflows, newest first.`,
	Run:     runWorkflowList,
}

// workflowShowCmd shows a workflow.
var workflowShowCmd = &cobra.Command{
	Use:   "show <id-or-name>",
	Short: "Show a workflow",
	Long:  `Show the nodes and edges of a stored workflow.`,
	Args:  cobra.ExactArgs(1),
	Run:   runWorkflowShow,
}

// workflowValidateCmd validates a workflow.
var workflowValidateCmd = &cobra.Command{
	Use:   "validate <id-or-name|file>",
	Short: "Validate a workflow",
	Long: `Validate a stored workflow on the server. When the argument is a path to a
canvas file the file is validated locally instead.`,
	Args: cobra.ExactArgs(1),
	Run:  runWorkflowValidate,
}

// workflowDeleteCmd deletes a workflow.
var workflowDeleteCmd = &cobra.Command{
	Use:     "rm <id-or-name>",
	Aliases: []string{"delete"},
	Short:   "Delete a workflow",
	Args:    cobra.ExactArgs(1),
	Run:     runWorkflowDelete,
}

// workflowImportCmd saves a canvas file as a workflow.
var workflowImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Save a canvas file as a workflow",
	Long: `Read a YAML canvas file and save it as a new workflow, or replace the graph
of an existing one with --into.`,
	Args: cobra.ExactArgs(1),
	Run:  runWorkflowImport,
}

// workflowExportCmd writes a workflow as a canvas file.
var workflowExportCmd = &cobra.Command{
	Use:   "export <id-or-name>",
	Short: "Write a workflow as a canvas file",
	Args:  cobra.ExactArgs(1),
	Run:   runWorkflowExport,
}

// workflowSetCmd edits one config value of one node.
var workflowSetCmd = &cobra.Command{
	Use:   "set <id-or-name> <node-id> <key> <value>",
	Short: "Change one node setting",
	Long: `Change one configuration value of a node and save the workflow. The value
is checked against the node's field constraints first.`,
	Args: cobra.ExactArgs(4),
	Run:  runWorkflowSet,
}

func init() {
	workflowCmd.AddCommand(workflowListCmd)
	workflowCmd.AddCommand(workflowShowCmd)
	workflowCmd.AddCommand(workflowValidateCmd)
	workflowCmd.AddCommand(workflowDeleteCmd)
	workflowCmd.AddCommand(workflowImportCmd)
	workflowCmd.AddCommand(workflowExportCmd)
	workflowCmd.AddCommand(workflowSetCmd)

	workflowListCmd.Flags().IntVar(&workflowSkip, "skip", 0, "number of workflows to skip")
	workflowListCmd.Flags().IntVar(&workflowLimit, "limit", 0, "maximum number of workflows to list")
	workflowImportCmd.Flags().StringVar(&workflowImportInto, "into", "", "replace the graph of this workflow instead of creating one")
	workflowExportCmd.Flags().StringVarP(&workflowExportFile, "output", "o", "", "write to file instead of stdout")
}

func runWorkflowList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := newClient(loadConfig())

	workflows, err := c.ListWorkflowsPage(ctx, workflowSkip, workflowLimit)
	if err != nil {
		exitError("failed to list workflows: %v", err)
	}

	if len(workflows) == 0 {
		if outputJSON || outputYAML {
			fmt.Println("[]")
		} else {
			fmt.Println("No workflows found.")
		}
		return
	}

	if printFormatted(workflows) {
		return
	}
	renderWorkflows(os.Stdout, workflows)
}

func runWorkflowShow(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	cfg := loadConfig()
	c := newClient(cfg)

	id := resolveWorkflow(ctx, c, args[0])
	if outputJSON || outputYAML {
		wf, err := c.GetWorkflow(ctx, id)
		if err != nil {
			exitError("failed to get workflow: %v", err)
		}
		printFormatted(wf)
		return
	}

	s := loadSession(ctx, cfg, c, id)
	renderGraph(os.Stdout, s.Status(), s.Graph())
}

func runWorkflowValidate(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	var res types.ValidationResult
	if info, err := os.Stat(args[0]); err == nil && !info.IsDir() {
		canvas, err := codec.ParseFile(args[0])
		if err != nil {
			exitError("failed to parse canvas file: %v", err)
		}
		res = workflow.Validate(canvasWorkflow(canvas)).Result()
	} else {
		c := newClient(loadConfig())
		out, err := c.ValidateWorkflow(ctx, resolveWorkflow(ctx, c, args[0]))
		if err != nil {
			exitError("failed to validate workflow: %v", err)
		}
		res = *out
	}

	if printFormatted(res) {
		return
	}
	renderValidation(os.Stdout, res)
	if !res.Valid {
		os.Exit(1)
	}
}

func runWorkflowDelete(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := newClient(loadConfig())

	id := resolveWorkflow(ctx, c, args[0])
	if err := c.DeleteWorkflow(ctx, id); err != nil {
		exitError("failed to delete workflow: %v", err)
	}
	fmt.Printf("Deleted workflow: %s\n", id)
}

func runWorkflowImport(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	cfg := loadConfig()
	c := newClient(cfg)

	canvas, err := codec.ParseFile(args[0])
	if err != nil {
		exitError("failed to parse canvas file: %v", err)
	}

	var s *session.Session
	if workflowImportInto != "" {
		s = loadSession(ctx, cfg, c, resolveWorkflow(ctx, c, workflowImportInto))
	} else {
		s = newSession(cfg, c)
	}
	if canvas.Name != "" {
		s.SetName(canvas.Name)
	}
	s.SetDescription(canvas.Description)
	s.ReplaceGraph(canvas.Graph)

	wf, err := s.Save(ctx)
	if err != nil {
		exitError("failed to save workflow: %v", err)
	}
	fmt.Printf("Saved workflow: %s (id: %s, %d components, %d connections)\n",
		wf.Name, wf.ID, len(wf.Components), len(wf.Connections))
}

func runWorkflowExport(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	cfg := loadConfig()
	c := newClient(cfg)

	s := loadSession(ctx, cfg, c, resolveWorkflow(ctx, c, args[0]))
	status := s.Status()
	data, err := codec.EncodeYAML(s.Graph(), status.Name, status.Description)
	if err != nil {
		exitError("failed to encode canvas: %v", err)
	}

	if workflowExportFile == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(workflowExportFile, data, 0644); err != nil {
		exitError("failed to write file: %v", err)
	}
	fmt.Printf("Wrote %s\n", workflowExportFile)
}

func runWorkflowSet(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	cfg := loadConfig()
	c := newClient(cfg)

	s := loadSession(ctx, cfg, c, resolveWorkflow(ctx, c, args[0]))
	node, key := types.NodeID(args[1]), args[2]
	v, err := setConfigValue(s, node, key, args[3])
	if err != nil {
		exitError("%v", err)
	}
	if _, err := s.Save(ctx); err != nil {
		exitError("failed to save workflow: %v", err)
	}
	fmt.Printf("%s.%s = %v\n", node, key, v)
}

// setConfigValue applies a command-line value to one config key. The raw
// string goes to schema validation untouched, which converts it for numeric
// and boolean fields and keeps it verbatim for text fields.
func setConfigValue(s *session.Session, node types.NodeID, key, raw string) (any, error) {
	if err := s.EditConfig(node, key, raw); err != nil {
		return nil, err
	}
	n, err := s.Graph().Node(node)
	if err != nil {
		return nil, err
	}
	return n.Config[key], nil
}

// loadSession opens a session on a stored workflow. Session logs are only
// shown with --verbose.
func loadSession(ctx context.Context, cfg *config.Config, c *client.Client, id types.WorkflowID) *session.Session {
	s := newSession(cfg, c)
	if err := s.Load(ctx, id); err != nil {
		exitError("failed to load workflow: %v", err)
	}
	return s
}

func newSession(cfg *config.Config, c *client.Client) *session.Session {
	var opts []session.Option
	if verbose {
		opts = append(opts, session.WithLogger(newLogger(cfg)))
	}
	return session.New(c, c, opts...)
}

// resolveWorkflow finds a workflow by ID, name, or unique ID prefix.
func resolveWorkflow(ctx context.Context, c *client.Client, identifier string) types.WorkflowID {
	workflows, err := c.ListWorkflowsPage(ctx, 0, 0)
	if err != nil {
		exitError("failed to list workflows: %v", err)
	}
	id, err := matchWorkflow(workflows, identifier)
	if err != nil {
		// Not in the first page; let the server decide.
		return types.WorkflowID(identifier)
	}
	return id
}

// matchWorkflow picks the workflow identifier refers to: an exact id, an
// exact name, or a unique id prefix, in that order.
func matchWorkflow(workflows []types.WorkflowSummary, identifier string) (types.WorkflowID, error) {
	for _, wf := range workflows {
		if string(wf.ID) == identifier {
			return wf.ID, nil
		}
	}
	for _, wf := range workflows {
		if wf.Name == identifier {
			return wf.ID, nil
		}
	}
	var matches []types.WorkflowID
	for _, wf := range workflows {
		if strings.HasPrefix(string(wf.ID), identifier) {
			matches = append(matches, wf.ID)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("workflow not found: %s", identifier)
	default:
		return "", fmt.Errorf("ambiguous workflow prefix %s matches %d workflows", identifier, len(matches))
	}
}

// canvasWorkflow turns a canvas into a workflow record whose component ids
// are the node ids, so it can be validated without a server.
func canvasWorkflow(canvas *codec.Canvas) *types.Workflow {
	p := codec.Encode(canvas.Graph, canvas.Name, canvas.Description)
	wf := &types.Workflow{Name: p.Name, Description: p.Description}
	for _, d := range p.Components {
		wf.Components = append(wf.Components, types.Component{
			ID:            types.ComponentID(d.NodeID),
			ComponentType: d.ComponentType,
			NodeID:        d.NodeID,
			PositionX:     d.PositionX,
			PositionY:     d.PositionY,
			Config:        d.Config,
		})
	}
	for i, d := range p.Connections {
		wf.Connections = append(wf.Connections, types.Connection{
			ID:                types.ConnectionID(strconv.Itoa(i + 1)),
			SourceComponentID: types.ComponentID(d.SourceNodeID),
			TargetComponentID: types.ComponentID(d.TargetNodeID),
			SourceHandle:      d.SourceHandle,
			TargetHandle:      d.TargetHandle,
		})
	}
	return wf
}

func renderWorkflows(w io.Writer, workflows []types.WorkflowSummary) {
	table := newTable(w, "ID", "Name", "Components", "Connections", "Updated")
	for _, wf := range workflows {
		table.Append([]string{
			shortID(string(wf.ID)),
			truncate(wf.Name, 30),
			strconv.Itoa(wf.Components),
			strconv.Itoa(wf.Connections),
			wf.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}
	table.Render()
}

func renderGraph(w io.Writer, status session.Status, g *graph.Graph) {
	fmt.Fprintf(w, "Workflow: %s\n", status.Name)
	fmt.Fprintf(w, "ID: %s\n", status.WorkflowID)
	if status.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", status.Description)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Nodes (%d):\n", g.Len())
	nodes := newTable(w, "ID", "Type", "Label", "Position", "Config")
	for _, n := range g.Nodes() {
		nodes.Append([]string{
			string(n.ID),
			string(n.Type),
			n.Label,
			fmt.Sprintf("%.0f,%.0f", n.Position.X, n.Position.Y),
			formatConfig(n.Config),
		})
	}
	nodes.Render()

	edges := g.Edges()
	if len(edges) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Edges (%d):\n", len(edges))
	table := newTable(w, "Source", "Target")
	for _, e := range edges {
		table.Append([]string{string(e.Source), string(e.Target)})
	}
	table.Render()
}

func renderValidation(w io.Writer, res types.ValidationResult) {
	if res.Valid {
		fmt.Fprintln(w, "Workflow is valid.")
		return
	}
	fmt.Fprintln(w, "Workflow is invalid:")
	errs := res.Errors
	if len(errs) == 0 && res.Error != "" {
		errs = []string{res.Error}
	}
	for _, e := range errs {
		fmt.Fprintf(w, "  - %s\n", e)
	}
}

func formatConfig(cfg types.Config) string {
	if len(cfg) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, cfg[k])
	}
	return truncate(strings.Join(parts, " "), 60)
}
