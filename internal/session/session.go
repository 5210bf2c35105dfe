// Package session drives one editing session over a workflow: it owns the
// graph being edited and talks to the workflow and document collaborators
// to load, save and validate it.
package session

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/flowcanvas/flowcanvas/internal/codec"
	"github.com/flowcanvas/flowcanvas/internal/errdefs"
	"github.com/flowcanvas/flowcanvas/internal/graph"
	"github.com/flowcanvas/flowcanvas/internal/logging"
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

// WorkflowStore is the persistence collaborator.
type WorkflowStore interface {
	CreateWorkflow(ctx context.Context, payload *types.WorkflowPayload) (*types.Workflow, error)
	GetWorkflow(ctx context.Context, id types.WorkflowID) (*types.Workflow, error)
	UpdateWorkflow(ctx context.Context, id types.WorkflowID, payload *types.WorkflowPayload) (*types.Workflow, error)
	ListWorkflows(ctx context.Context) ([]types.WorkflowSummary, error)
	ValidateWorkflow(ctx context.Context, id types.WorkflowID) (*types.ValidationResult, error)
}

// DocumentStore is the document collaborator for knowledgebase nodes.
type DocumentStore interface {
	ListDocuments(ctx context.Context, knowledgebaseID types.NodeID) ([]types.Document, error)
	UploadDocument(ctx context.Context, knowledgebaseID types.NodeID, filename string, r io.Reader) (*types.Document, error)
}

// State is the persistence state of a session.
type State string

const (
	StateUnsaved    State = "unsaved"
	StateSaved      State = "saved"
	StateDirty      State = "dirty"
	StateLoading    State = "loading"
	StateSaving     State = "saving"
	StateValidating State = "validating"
)

// Status is a point-in-time view of a session.
type Status struct {
	State       State            `json:"state"`
	WorkflowID  types.WorkflowID `json:"workflow_id,omitempty"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Loading     bool             `json:"loading,omitempty"`
	Saving      bool             `json:"saving,omitempty"`
	Validating  bool             `json:"validating,omitempty"`
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithGraphOptions passes options to every graph the session creates.
func WithGraphOptions(opts ...graph.Option) Option {
	return func(s *Session) {
		s.graphOpts = append(s.graphOpts, opts...)
	}
}

// WithName sets the initial workflow name.
func WithName(name string) Option {
	return func(s *Session) { s.name = name }
}

// Session is safe for concurrent use. Graph mutations are applied
// synchronously under a lock; collaborator calls run without holding it so
// that editing continues while a request is in flight.
type Session struct {
	store     WorkflowStore
	docs      DocumentStore
	log       logging.Logger
	graphOpts []graph.Option

	mu          sync.Mutex
	graph       *graph.Graph
	id          types.WorkflowID
	name        string
	description string

	// rev counts local edits; savedRev is the rev the collaborator last
	// acknowledged. They differ exactly when the session is dirty.
	rev      uint64
	savedRev uint64
	// generation advances on every load; responses carrying an older
	// generation are discarded.
	generation uint64

	loading    int
	saving     bool
	validating int
}

// New creates an empty, unsaved session. docs may be nil when documents are
// not needed.
func New(store WorkflowStore, docs DocumentStore, opts ...Option) *Session {
	s := &Session{
		store: store,
		docs:  docs,
		log:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.graph = graph.New(s.graphOpts...)
	return s
}

// State returns the current state. Busy states take precedence.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	switch {
	case s.saving:
		return StateSaving
	case s.loading > 0:
		return StateLoading
	case s.validating > 0:
		return StateValidating
	}
	return s.baseLocked()
}

func (s *Session) baseLocked() State {
	switch {
	case s.id == "":
		return StateUnsaved
	case s.rev != s.savedRev:
		return StateDirty
	default:
		return StateSaved
	}
}

// Status returns a snapshot of the session's bookkeeping.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:       s.baseLocked(),
		WorkflowID:  s.id,
		Name:        s.name,
		Description: s.description,
		Loading:     s.loading > 0,
		Saving:      s.saving,
		Validating:  s.validating > 0,
	}
}

// WorkflowID returns the durable id, or "" before the first save.
func (s *Session) WorkflowID() types.WorkflowID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Name returns the workflow name.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// SetName renames the workflow.
func (s *Session) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.name != name {
		s.name = name
		s.rev++
	}
}

// SetDescription changes the workflow description.
func (s *Session) SetDescription(description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.description != description {
		s.description = description
		s.rev++
	}
}

// Graph returns a snapshot of the graph being edited.
func (s *Session) Graph() *graph.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Clone()
}

// ReplaceGraph swaps in g wholesale, as an import does. The workflow id is
// kept, so the next save updates the existing record.
func (s *Session) ReplaceGraph(g *graph.Graph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = g.Clone()
	s.rev++
}

// Load replaces the session with the stored workflow id. Local edits are
// discarded. A payload that fails to decode leaves the session untouched.
func (s *Session) Load(ctx context.Context, id types.WorkflowID) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.loading++
	s.mu.Unlock()

	wf, err := s.store.GetWorkflow(ctx, id)
	var g *graph.Graph
	if err == nil {
		g, err = codec.Decode(wf, s.graphOpts...)
		if err != nil {
			err = decodeErr(err)
		}
	} else {
		err = transportErr("load", err, map[string]any{"workflow_id": string(id)})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--

	if gen != s.generation {
		s.log.Debug("discarding superseded load", "workflow_id", id, "generation", gen)
		return errdefs.Stale("load", gen)
	}
	if err != nil {
		s.log.Warn("load failed", "workflow_id", id, "error", err)
		return err
	}

	s.graph = g
	s.id = wf.ID
	s.name = wf.Name
	s.description = wf.Description
	s.rev++
	s.savedRev = s.rev
	s.log.Info("workflow loaded", "workflow_id", wf.ID, "components", len(wf.Components), "connections", len(wf.Connections))
	return nil
}

// Save creates the workflow on first call and updates it afterwards. Only
// one save may be outstanding; a second one is rejected rather than queued.
// Edits made while the save is in flight leave the session dirty.
func (s *Session) Save(ctx context.Context) (*types.Workflow, error) {
	s.mu.Lock()
	if s.saving || s.loading > 0 {
		s.mu.Unlock()
		return nil, errdefs.SaveInFlight()
	}
	if strings.TrimSpace(s.name) == "" {
		s.mu.Unlock()
		return nil, errdefs.Rejected("workflow name is required", map[string]any{"key": "name"})
	}
	payload := codec.Encode(s.graph, s.name, s.description)
	id := s.id
	gen := s.generation
	rev := s.rev
	s.saving = true
	s.mu.Unlock()

	var (
		wf  *types.Workflow
		err error
	)
	if id == "" {
		wf, err = s.store.CreateWorkflow(ctx, payload)
	} else {
		wf, err = s.store.UpdateWorkflow(ctx, id, payload)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false

	if gen != s.generation {
		s.log.Debug("discarding superseded save", "workflow_id", id, "generation", gen)
		return nil, errdefs.Stale("save", gen)
	}
	if err != nil {
		err = transportErr("save", err, map[string]any{"workflow_id": string(id)})
		s.log.Warn("save failed", "workflow_id", id, "error", err)
		return nil, err
	}

	s.id = wf.ID
	for _, c := range wf.Components {
		// nodes removed while the save was in flight are simply skipped
		_ = s.graph.SetComponentID(c.NodeID, c.ID)
	}
	s.savedRev = rev
	if s.rev != rev {
		s.log.Debug("graph changed during save", "workflow_id", wf.ID)
	}
	s.log.Info("workflow saved", "workflow_id", wf.ID, "components", len(wf.Components))
	return wf, nil
}

// Validate asks the collaborator whether the stored workflow is complete.
// It does not change the session state. An invalid workflow is a normal
// result, not an error.
func (s *Session) Validate(ctx context.Context) (*types.ValidationResult, error) {
	s.mu.Lock()
	if s.id == "" {
		s.mu.Unlock()
		return nil, errdefs.NotPersisted("validate")
	}
	id := s.id
	gen := s.generation
	s.validating++
	s.mu.Unlock()

	res, err := s.store.ValidateWorkflow(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.validating--
	if gen != s.generation {
		return nil, errdefs.Stale("validate", gen)
	}
	if err != nil {
		return nil, transportErr("validate", err, map[string]any{"workflow_id": string(id)})
	}
	return res, nil
}

// List returns the stored workflows.
func (s *Session) List(ctx context.Context) ([]types.WorkflowSummary, error) {
	list, err := s.store.ListWorkflows(ctx)
	if err != nil {
		return nil, transportErr("list", err, nil)
	}
	return list, nil
}

func transportErr(op string, err error, metadata map[string]any) error {
	if errdefs.Code(err) != "" {
		return err
	}
	return errdefs.Transport(op, "", err, metadata)
}

func decodeErr(err error) error {
	if errdefs.IsDecode(err) {
		return err
	}
	return errdefs.Decode(err.Error(), nil)
}
