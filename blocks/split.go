package blocks

import "strings"

// ---------------------------------------------------------------------------
// Top-level operator splitting
// ---------------------------------------------------------------------------

// splitBinary finds the rightmost top-level occurrence of any of the given
// spaced operators in s and splits around it. Rightmost gives left-
// associative trees, matching how the renderer nests operands. Operators
// inside parentheses or string literals are skipped.
func splitBinary(s string, ops []string) (left, op, right string, ok bool) {
	depth := 0
	inStr := false
	best := -1
	bestOp := ""
	for i := 0; i < len(s); i++ {
		switch {
		case inStr:
			if s[i] == '"' {
				inStr = false
			}
			continue
		case s[i] == '"':
			inStr = true
			continue
		case s[i] == '(':
			depth++
			continue
		case s[i] == ')':
			depth--
			continue
		}
		if depth != 0 || s[i] != ' ' {
			continue
		}
		for _, candidate := range ops {
			probe := " " + candidate + " "
			if strings.HasPrefix(s[i:], probe) {
				// Both operands must be non-empty.
				if i > 0 && i+len(probe) < len(s) {
					best = i
					bestOp = candidate
				}
				break
			}
		}
	}
	if best < 0 {
		return "", "", "", false
	}
	return s[:best], bestOp, s[best+len(bestOp)+2:], true
}

// binaryMatcher builds a Matcher splitting at one operator tier. The
// operator lands in the OP capture, the operands in A and B.
func binaryMatcher(ops ...string) Matcher {
	return MatchFunc(func(s string) (Captures, bool) {
		a, op, b, ok := splitBinary(s, ops)
		if !ok {
			return nil, false
		}
		return Captures{"A": a, "OP": op, "B": b}, true
	})
}

// tieredMatcher tries tiers of operators lowest-precedence first, so a
// mixed expression splits at its loosest binding operator.
func tieredMatcher(tiers ...[]string) Matcher {
	return MatchFunc(func(s string) (Captures, bool) {
		for _, tier := range tiers {
			if a, op, b, ok := splitBinary(s, tier); ok {
				return Captures{"A": a, "OP": op, "B": b}, true
			}
		}
		return nil, false
	})
}

// splitTopComma splits s at its single top-level comma.
func splitTopComma(s string) (a, b string, ok bool) {
	depth := 0
	inStr := false
	for i := 0; i < len(s); i++ {
		switch {
		case inStr:
			if s[i] == '"' {
				inStr = false
			}
		case s[i] == '"':
			inStr = true
		case s[i] == '(':
			depth++
		case s[i] == ')':
			depth--
		case s[i] == ',' && depth == 0:
			return s[:i], strings.TrimPrefix(s[i+1:], " "), true
		}
	}
	return "", "", false
}

// StripParens removes one or more enclosing balanced parenthesis pairs.
// The extraction engine applies it before trying value kinds, undoing the
// renderer's minimal parenthesization.
func StripParens(s string) string {
	for len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		depth := 0
		inStr := false
		balanced := true
		for i := 0; i < len(s)-1; i++ {
			switch {
			case inStr:
				if s[i] == '"' {
					inStr = false
				}
			case s[i] == '"':
				inStr = true
			case s[i] == '(':
				depth++
			case s[i] == ')':
				depth--
			}
			if depth == 0 {
				balanced = false
				break
			}
		}
		if !balanced {
			return s
		}
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
