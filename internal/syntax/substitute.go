package syntax

// SubstituteEffect replaces every free occurrence of the variable name with
// value throughout e. Nested quantifiers that rebind name shadow it.
func SubstituteEffect(e Effect, name, value string) Effect {
	switch v := e.(type) {
	case Literal:
		return Literal{Atom: substituteAtom(v.Atom, name, value), Negated: v.Negated}
	case Assign:
		return Assign{
			Op:  v.Op,
			LHS: substituteApplication(v.LHS, name, value),
			RHS: SubstituteTerm(v.RHS, name, value),
		}
	case When:
		return When{
			Condition: SubstituteFormula(v.Condition, name, value),
			Effect:    SubstituteEffect(v.Effect, name, value),
		}
	case ForallEffect:
		if binds(v.Params, name) {
			return v
		}
		return ForallEffect{Params: v.Params, Effect: SubstituteEffect(v.Effect, name, value)}
	case AndEffect:
		parts := make([]Effect, len(v.Parts))
		for i, p := range v.Parts {
			parts[i] = SubstituteEffect(p, name, value)
		}
		return AndEffect{Parts: parts}
	}
	return e
}

// SubstituteFormula replaces free occurrences of name in f.
func SubstituteFormula(f Formula, name, value string) Formula {
	switch v := f.(type) {
	case Atom:
		return substituteAtom(v, name, value)
	case Not:
		return Not{Body: SubstituteFormula(v.Body, name, value)}
	case And:
		return And{Parts: substituteFormulas(v.Parts, name, value)}
	case Or:
		return Or{Parts: substituteFormulas(v.Parts, name, value)}
	case Exists:
		if binds(v.Params, name) {
			return v
		}
		return Exists{Params: v.Params, Body: substituteFormulas(v.Body, name, value)}
	case Forall:
		if binds(v.Params, name) {
			return v
		}
		return Forall{Params: v.Params, Body: substituteFormulas(v.Body, name, value)}
	}
	return f
}

// SubstituteTerm replaces occurrences of name in t, descending into nested
// functional terms.
func SubstituteTerm(t Term, name, value string) Term {
	switch v := t.(type) {
	case Token:
		if v.Text == name {
			return Token{Text: value}
		}
		return v
	case Application:
		return substituteApplication(v, name, value)
	}
	return t
}

func substituteFormulas(fs []Formula, name, value string) []Formula {
	out := make([]Formula, len(fs))
	for i, f := range fs {
		out[i] = SubstituteFormula(f, name, value)
	}
	return out
}

func substituteAtom(a Atom, name, value string) Atom {
	return Atom{Symbol: a.Symbol, Args: substituteTerms(a.Args, name, value)}
}

func substituteApplication(a Application, name, value string) Application {
	return Application{Symbol: a.Symbol, Args: substituteTerms(a.Args, name, value)}
}

func substituteTerms(ts []Term, name, value string) []Term {
	out := make([]Term, len(ts))
	for i, t := range ts {
		out[i] = SubstituteTerm(t, name, value)
	}
	return out
}

func binds(params []TypedName, name string) bool {
	for _, p := range params {
		if p.Name == name {
			return true
		}
	}
	return false
}
