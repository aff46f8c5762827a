// Package asp computes relaxed reachability through an external ASP
// grounder: it renames the task to ASP-safe identifiers, encodes it as a
// logic program, runs the grounder, and decodes the reachable facts, actions
// and condition codes.
package asp

import (
	"context"
	"log/slog"

	"groundc/internal/index"
	"groundc/internal/taskerr"
)

// State is the phase of a Bridge run.
type State string

const (
	StateIdle    State = "idle"
	StateRenamed State = "renamed"
	StateEncoded State = "encoded"
	StateInvoked State = "invoked"
	StateParsed  State = "parsed"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

func isAllowedTransition(from, to State) bool {
	if to == StateFailed {
		return from != StateDone && from != StateFailed
	}
	switch from {
	case StateIdle:
		return to == StateRenamed
	case StateRenamed:
		return to == StateEncoded
	case StateEncoded:
		return to == StateInvoked
	case StateInvoked:
		return to == StateParsed
	case StateParsed:
		return to == StateDone
	default:
		return false
	}
}

// Bridge drives one grounding run. A Bridge is single-use.
type Bridge struct {
	grounder Grounder
	logger   *slog.Logger
	state    State

	aliases *Aliases
	program *Program
}

// NewBridge creates a bridge over a grounder.
func NewBridge(g Grounder, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{grounder: g, logger: logger, state: StateIdle}
}

// State returns the current phase.
func (b *Bridge) State() State {
	return b.state
}

// Program returns the encoded program once the bridge has passed Encoded.
func (b *Bridge) Program() *Program {
	return b.program
}

func (b *Bridge) transition(to State) error {
	if !isAllowedTransition(b.state, to) {
		return taskerr.Internal(taskerr.StageGrounding, string(to), "disallowed bridge transition %s -> %s", b.state, to)
	}
	b.logger.Debug("grounding bridge", "from", string(b.state), "to", string(to))
	b.state = to
	return nil
}

func (b *Bridge) fail(err error) error {
	if b.state != StateFailed && b.state != StateDone {
		b.state = StateFailed
	}
	return err
}

// Run computes the reachable groundings of a task. It fails with
// UnreachableGoal when the grounder completes without deriving the goal.
func (b *Bridge) Run(ctx context.Context, ictx *index.Context, in Input) (*Groundings, error) {
	if err := b.transition(StateRenamed); err != nil {
		return nil, b.fail(err)
	}
	b.aliases = NewAliases(ictx, in.Actions)

	program, err := Encode(ictx, in, b.aliases)
	if err != nil {
		return nil, b.fail(err)
	}
	b.program = program
	if err := b.transition(StateEncoded); err != nil {
		return nil, b.fail(err)
	}
	b.logger.Info("encoded reachability program", "rules", len(program.Rules), "conditions", program.Conditions)

	solution, err := b.grounder.Ground(ctx, program.String())
	if err != nil {
		return nil, b.fail(err)
	}
	if err := b.transition(StateInvoked); err != nil {
		return nil, b.fail(err)
	}

	g, err := Decode(solution, b.aliases)
	if err != nil {
		return nil, b.fail(err)
	}
	if err := b.transition(StateParsed); err != nil {
		return nil, b.fail(err)
	}

	if !g.GoalReachable {
		return nil, b.fail(taskerr.UnreachableGoal(taskerr.StageGrounding, "goal", "grounder did not derive reachable_goal"))
	}
	if err := b.transition(StateDone); err != nil {
		return nil, b.fail(err)
	}
	b.logger.Info("grounding complete", "actions", len(g.Actions), "predicates", len(g.Predicates))
	return g, nil
}
