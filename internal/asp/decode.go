package asp

import (
	"bufio"
	"slices"
	"strconv"
	"strings"

	"groundc/internal/taskerr"
)

// Groundings is the decoded reachability solution. Tuples hold object ids,
// or integer values for numeric arguments, and are sorted.
type Groundings struct {
	Actions           map[string][][]int
	Predicates        map[string][][]int
	NegatedPredicates map[string][][]int
	Conditions        map[string][][]int
	GoalReachable     bool
}

func newGroundings() *Groundings {
	return &Groundings{
		Actions:           make(map[string][][]int),
		Predicates:        make(map[string][][]int),
		NegatedPredicates: make(map[string][][]int),
		Conditions:        make(map[string][][]int),
	}
}

// Decode parses grounder output. Every whitespace-separated token of the
// form kind(term) or kind(term). is read; other tokens and comment lines
// are ignored, so both plain fact listings and answer-set output decode.
func Decode(solution string, aliases *Aliases) (*Groundings, error) {
	g := newGroundings()
	sc := bufio.NewScanner(strings.NewReader(solution))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		for _, tok := range strings.Fields(line) {
			if err := g.add(strings.TrimSuffix(tok, "."), aliases); err != nil {
				return nil, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, taskerr.GroundingInfrastructure(taskerr.StageGrounding, "solution", "reading solution: %v", err).WithCause(err)
	}

	for _, m := range []map[string][][]int{g.Actions, g.Predicates, g.NegatedPredicates, g.Conditions} {
		for k, tuples := range m {
			slices.SortFunc(tuples, slices.Compare[[]int])
			m[k] = slices.CompactFunc(tuples, slices.Equal[[]int])
		}
	}
	return g, nil
}

func (g *Groundings) add(tok string, aliases *Aliases) error {
	if tok == "reachable_goal" {
		g.GoalReachable = true
		return nil
	}

	kind, inner, ok := splitApplication(tok)
	if !ok {
		return nil
	}
	var target map[string][][]int
	switch kind {
	case "reachable":
		target = g.Conditions
	case "reachable_a":
		target = g.Actions
	case "reachable_f":
		target = g.Predicates
	default:
		return nil
	}

	name, args, ok := splitApplication(inner)
	if !ok {
		name, args = inner, ""
	}
	tuple, err := parseTuple(args)
	if err != nil {
		return taskerr.GroundingInfrastructure(taskerr.StageGrounding, tok, "malformed atom in solution: %v", err)
	}

	key := name
	switch kind {
	case "reachable_f":
		if strings.HasPrefix(name, "np") {
			target = g.NegatedPredicates
		}
		fallthrough
	case "reachable_a":
		sym, ok := aliases.Symbol(name)
		if !ok {
			return taskerr.GroundingInfrastructure(taskerr.StageGrounding, tok, "unknown alias %q in solution", name)
		}
		key = sym
	}
	target[key] = append(target[key], tuple)
	return nil
}

// splitApplication splits name(args) into name and args.
func splitApplication(s string) (string, string, bool) {
	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return "", "", false
	}
	return s[:open], s[open+1 : len(s)-1], true
}

func parseTuple(args string) ([]int, error) {
	if args == "" {
		return []int{}, nil
	}
	parts := strings.Split(args, ",")
	tuple := make([]int, len(parts))
	for i, p := range parts {
		if id, ok := ObjectID(p); ok {
			tuple[i] = id
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		tuple[i] = n
	}
	return tuple, nil
}
