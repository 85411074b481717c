package abi

import "strings"

// declKind tags one parsed human-readable signature line.
type declKind uint8

const (
	declFunction declKind = iota
	declConstructor
	declEvent
)

// param is one parsed parameter: a type spelling plus, for events,
// whether it carries the indexed keyword.
type param struct {
	Type    string
	Indexed bool
}

// decl is one human-readable signature, e.g.
// "function transfer(address, uint256) (bool)",
// "constructor(uint256)",
// "event Transfer(address indexed, address indexed, uint256)".
type decl struct {
	Kind    declKind
	Name    string
	Inputs  []param
	Outputs []param
}

// parseHumanReadable parses spec §4.6's textual signature form: a
// sequence of "function name(types) (outtypes)", "constructor(types)",
// or "event Name(types)" lines.
func parseHumanReadable(sigs []string) ([]decl, error) {
	var decls []decl
	for _, raw := range sigs {
		d, err := parseOneSignature(raw)
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
	}
	return decls, nil
}

func parseOneSignature(raw string) (decl, error) {
	s := strings.TrimSpace(raw)
	fail := func() (decl, error) { return decl{}, &ParseError{Text: raw, Err: errInvalidType} }

	var kind declKind
	switch {
	case strings.HasPrefix(s, "function "):
		kind = declFunction
		s = strings.TrimSpace(strings.TrimPrefix(s, "function "))
	case strings.HasPrefix(s, "constructor"):
		kind = declConstructor
		s = strings.TrimSpace(strings.TrimPrefix(s, "constructor"))
	case strings.HasPrefix(s, "event "):
		kind = declEvent
		s = strings.TrimSpace(strings.TrimPrefix(s, "event "))
	default:
		return fail()
	}

	name := ""
	if kind != declConstructor {
		open := strings.Index(s, "(")
		if open < 0 {
			return fail()
		}
		name = strings.TrimSpace(s[:open])
		if name == "" {
			return fail()
		}
		s = s[open:]
	}

	inClose := matchingParen(s, 0)
	if inClose < 0 {
		return fail()
	}
	inputsText := s[1:inClose]
	rest := strings.TrimSpace(s[inClose+1:])

	inputs, err := parseParamList(inputsText)
	if err != nil {
		return decl{}, err
	}

	var outputs []param
	if rest != "" {
		if !strings.HasPrefix(rest, "(") {
			return fail()
		}
		outClose := matchingParen(rest, 0)
		if outClose < 0 || outClose != len(rest)-1 {
			return fail()
		}
		outputs, err = parseParamList(rest[1:outClose])
		if err != nil {
			return decl{}, err
		}
	}

	return decl{Kind: kind, Name: name, Inputs: inputs, Outputs: outputs}, nil
}

// matchingParen returns the index of the ')' matching the '(' at open,
// or -1 if s[open] isn't '(' or there is no match.
func matchingParen(s string, open int) int {
	if open >= len(s) || s[open] != '(' {
		return -1
	}
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func parseParamList(s string) ([]param, error) {
	var params []param
	for _, field := range splitTopLevel(s) {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		tokens := strings.Fields(field)
		if len(tokens) == 0 {
			continue
		}
		p := param{Type: tokens[0]}
		for _, tok := range tokens[1:] {
			if tok == "indexed" {
				p.Indexed = true
			}
		}
		params = append(params, p)
	}
	return params, nil
}
