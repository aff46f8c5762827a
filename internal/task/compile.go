// Package task runs the compilation pipeline from a parsed domain and
// problem to a task document plus static side tables.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"groundc/internal/asp"
	"groundc/internal/ast"
	"groundc/internal/index"
	"groundc/internal/schema"
	"groundc/internal/static"
	"groundc/internal/syntax"
	"groundc/internal/variables"
)

// Options configures a compilation.
type Options struct {
	// Grounder selects grounding-directed instantiation. Nil means
	// exhaustive instantiation.
	Grounder asp.Grounder
	// Compress marks static side files as zstd-compressed.
	Compress bool
	// Logger for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Option configures Options.
type Option func(*Options)

// WithGrounder enables grounding-directed instantiation through g.
func WithGrounder(g asp.Grounder) Option {
	return func(o *Options) {
		o.Grounder = g
	}
}

// WithCompression writes static side files zstd-compressed.
func WithCompression(enabled bool) Option {
	return func(o *Options) {
		o.Compress = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// Result is a compiled task.
type Result struct {
	Document   *Document
	Tables     []static.Table
	Variables  *variables.Index
	Groundings *asp.Groundings // nil under exhaustive instantiation
	Compressed bool
}

type goalNodes struct {
	goal        ast.Node
	constraints ast.Node
}

type compiled struct {
	ctx     *index.Context
	actions []*schema.ActionSchema
	axioms  []*schema.Axiom
	goal    goalNodes
	metric  *schema.Metric
}

// Compile runs the whole pipeline. Nothing is written; see Write.
func Compile(ctx context.Context, domain *syntax.Domain, problem *syntax.Problem, opts ...Option) (*Result, error) {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	c, err := lift(domain, problem)
	if err != nil {
		return nil, err
	}
	logger.Info("indexed task",
		"domain", domain.Name,
		"problem", problem.Name,
		"types", c.ctx.Types.Len(),
		"objects", c.ctx.Objects.Len(),
		"symbols", c.ctx.Symbols.Len(),
		"fluent", len(c.ctx.Symbols.FluentSymbols()))

	var vars *variables.Index
	var groundings *asp.Groundings
	if options.Grounder != nil {
		bridge := asp.NewBridge(options.Grounder, logger)
		groundings, err = bridge.Run(ctx, c.ctx, c.input(problem))
		if err != nil {
			return nil, fmt.Errorf("grounding: %w", err)
		}
		for _, s := range c.actions {
			s.Groundings = groundings.Actions[s.Name]
			if s.Groundings == nil {
				s.Groundings = [][]int{}
			}
		}
		vars, err = variables.Directed(c.ctx, groundings.Predicates)
	} else {
		vars, err = variables.Exhaustive(c.ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("instantiating state variables: %w", err)
	}
	logger.Info("instantiated state variables", "count", vars.Len(), "directed", groundings != nil)

	tables, err := static.Build(c.ctx, problem)
	if err != nil {
		return nil, fmt.Errorf("building static tables: %w", err)
	}
	for _, t := range tables {
		logger.Debug("static table", "symbol", t.Symbol(), "variant", static.Describe(t), "rows", len(t.Rows()))
	}

	doc, err := buildDocument(documentInput{
		ctx:        c.ctx,
		problem:    problem,
		vars:       vars,
		actions:    c.actions,
		axioms:     c.axioms,
		goal:       c.goal,
		metric:     c.metric,
		tables:     tables,
		compressed: options.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("serializing task: %w", err)
	}
	logger.Info("compiled task", "digest", doc.Digest, "elapsed", time.Since(start))

	return &Result{
		Document:   doc,
		Tables:     tables,
		Variables:  vars,
		Groundings: groundings,
		Compressed: options.Compress,
	}, nil
}

// Encode builds the reachability program of a task without running a
// grounder.
func Encode(domain *syntax.Domain, problem *syntax.Problem) (*asp.Program, error) {
	c, err := lift(domain, problem)
	if err != nil {
		return nil, err
	}
	return asp.Encode(c.ctx, c.input(problem), asp.NewAliases(c.ctx, c.actions))
}

// lift indexes the task and compiles every lifted structure.
func lift(domain *syntax.Domain, problem *syntax.Problem) (*compiled, error) {
	ictx, err := index.Build(domain, problem)
	if err != nil {
		return nil, fmt.Errorf("indexing task: %w", err)
	}
	comp := schema.NewCompiler(ictx)
	c := &compiled{ctx: ictx}

	if c.actions, err = comp.Actions(domain.Actions); err != nil {
		return nil, fmt.Errorf("compiling actions: %w", err)
	}
	for _, decl := range domain.Axioms {
		ax, err := comp.Axiom(decl)
		if err != nil {
			return nil, fmt.Errorf("compiling axiom %s: %w", decl.Name, err)
		}
		c.axioms = append(c.axioms, ax)
	}
	if c.goal.goal, err = comp.Goal(problem.Goal); err != nil {
		return nil, fmt.Errorf("compiling goal: %w", err)
	}
	if c.goal.constraints, err = comp.Constraints(problem.Constraints); err != nil {
		return nil, fmt.Errorf("compiling state constraints: %w", err)
	}
	if c.metric, err = comp.Metric(problem.Metric); err != nil {
		return nil, fmt.Errorf("compiling metric: %w", err)
	}
	return c, nil
}

func (c *compiled) input(problem *syntax.Problem) asp.Input {
	return asp.Input{Problem: problem, Actions: c.actions, Axioms: c.axioms, Goal: c.goal.goal}
}

func dumpNode(ctx *index.Context, n ast.Node) (map[string]interface{}, error) {
	return ast.Dump(n, ctx, nil)
}
