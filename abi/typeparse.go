package abi

import (
	"strings"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
)

// splitTopLevel splits s on commas that are not nested inside
// parentheses or brackets, the way a Solidity tuple/array type list
// must be split.
func splitTopLevel(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// parseTypeString turns a Solidity type spelling — "uint256",
// "address[]", "(uint64,bytes32)[3]", "string" — into the component
// tree go-ethereum's accounts/abi.NewType expects. Nested tuples are
// parsed recursively; anything that isn't a tuple is passed through
// verbatim, since accounts/abi's own parser already understands every
// primitive spelling and array suffix.
func parseTypeString(raw string) (gethabi.ArgumentMarshaling, error) {
	s := strings.TrimSpace(raw)

	// Split off any trailing array suffixes (possibly several, for
	// multi-dimensional arrays), leaving the base type.
	base := s
	suffix := ""
	for {
		trimmed := strings.TrimRight(base, " ")
		if strings.HasSuffix(trimmed, "]") {
			open := strings.LastIndex(trimmed, "[")
			if open < 0 {
				return gethabi.ArgumentMarshaling{}, &ParseError{Text: raw, Err: errInvalidType}
			}
			suffix = trimmed[open:] + suffix
			base = trimmed[:open]
			continue
		}
		break
	}
	base = strings.TrimSpace(base)

	if strings.HasPrefix(base, "(") {
		if !strings.HasSuffix(base, ")") {
			return gethabi.ArgumentMarshaling{}, &ParseError{Text: raw, Err: errInvalidType}
		}
		inner := base[1 : len(base)-1]
		var components []gethabi.ArgumentMarshaling
		for i, field := range splitTopLevel(inner) {
			comp, err := parseTypeString(strings.TrimSpace(field))
			if err != nil {
				return gethabi.ArgumentMarshaling{}, err
			}
			if comp.Name == "" {
				comp.Name = componentName(i)
			}
			components = append(components, comp)
		}
		return gethabi.ArgumentMarshaling{
			Type:       "tuple" + suffix,
			Components: components,
		}, nil
	}

	return gethabi.ArgumentMarshaling{Type: base + suffix}, nil
}

func componentName(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	if i < len(letters) {
		return "field" + string(letters[i])
	}
	return "field"
}

var errInvalidType = errInvalidTypeErr{}

type errInvalidTypeErr struct{}

func (errInvalidTypeErr) Error() string { return "malformed type expression" }

// buildType resolves a Solidity type spelling to a gethabi.Type.
func buildType(raw string) (gethabi.Type, error) {
	am, err := parseTypeString(raw)
	if err != nil {
		return gethabi.Type{}, err
	}
	t, err := gethabi.NewType(am.Type, "", am.Components)
	if err != nil {
		return gethabi.Type{}, &ParseError{Text: raw, Err: err}
	}
	return t, nil
}
