// Package assembler wraps mapped nodes and connections into an n8n workflow document.
package assembler

import (
	"time"

	"github.com/dukex/flowbridge/pkg/models"
	"github.com/google/uuid"
)

// DefaultName is used when the source document declares no name.
const DefaultName = "Converted Workflow"

// Description is stamped on every generated workflow.
const Description = "This workflow was automatically converted from a Make.com workflow. " +
	"Some manual adjustments may be required."

// Tags are attached to every generated workflow.
var Tags = []string{"converted", "make.com"}

// Assembler builds workflow documents. The zero value is not usable; call New.
type Assembler struct {
	newID func() string
	now   func() time.Time
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithIDGenerator replaces uuid.NewString as the source of document ids.
func WithIDGenerator(fn func() string) Option {
	return func(a *Assembler) {
		a.newID = fn
	}
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(a *Assembler) {
		a.now = fn
	}
}

func New(opts ...Option) *Assembler {
	a := &Assembler{
		newID: uuid.NewString,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Assemble produces the final document. Document id, version id and instance id are
// generated fresh on every call.
func (a *Assembler) Assemble(name string, nodes []models.Node, connections models.Connections) *models.Workflow {
	if name == "" {
		name = DefaultName
	}

	if nodes == nil {
		nodes = []models.Node{}
	}

	if connections == nil {
		connections = models.Connections{}
	}

	now := a.now().UTC()

	return &models.Workflow{
		ID:          a.newID(),
		Name:        name,
		Nodes:       nodes,
		Connections: connections,
		Active:      false,
		Settings: models.WorkflowSettings{
			ExecutionOrder:         "v1",
			SaveManualExecutions:   true,
			CallerPolicy:           "any",
			SaveDataErrorExecution: "all",
		},
		VersionID: a.newID(),
		Meta: models.WorkflowMeta{
			InstanceID:                 a.newID(),
			TemplateCredsSetupComplete: true,
			ConvertedFromMakeCom:       true,
			ConversionDate:             now,
		},
		Tags:         append([]string(nil), Tags...),
		PinData:      map[string]any{},
		StaticData:   nil,
		TriggerCount: 0,
		CreatedAt:    now,
		UpdatedAt:    now,
		Description:  Description,
	}
}
