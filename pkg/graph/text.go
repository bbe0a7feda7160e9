package graph

import (
	"strings"

	"github.com/okvist/quarry/pkg/artifact"
	"github.com/okvist/quarry/pkg/errors"
)

// The textual graph form: one node per line, two spaces of indentation per
// depth level. A node line is the coordinate, "@scope" when the scope is
// non-empty, and a trailing "?" for an optional dependency. The artificial
// root prints as "(root)".
//
// Marshal followed by Parse yields a structurally equal graph; tests lean on
// this for fixtures and round-trip checks.

const indent = "  "

// rootToken marks a nil-dependency node in the textual form.
const rootToken = "(root)"

// Marshal renders the subtree in the textual graph form.
func Marshal(root *Node) string {
	var sb strings.Builder
	root.Walk(func(n *Node, depth int) bool {
		sb.WriteString(strings.Repeat(indent, depth))
		sb.WriteString(nodeToken(n))
		sb.WriteByte('\n')
		return true
	})
	return sb.String()
}

func nodeToken(n *Node) string {
	if n.Dependency == nil {
		return rootToken
	}
	d := n.Dependency
	token := d.Coordinate.String()
	if d.Scope != "" {
		token += "@" + d.Scope
	}
	if d.IsOptional() {
		token += "?"
	}
	return token
}

// Parse reads the textual graph form back into a node tree.
func Parse(text string) (*Node, error) {
	var root *Node
	// stack[d] is the most recent node at depth d
	var stack []*Node

	for lineNo, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		depth := 0
		for strings.HasPrefix(line, indent) {
			line = line[len(indent):]
			depth++
		}
		if strings.HasPrefix(line, " ") {
			return nil, errors.New(errors.ErrCodeInvalidRequest,
				"graph text line %d: odd indentation", lineNo+1)
		}

		node, err := parseToken(line)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRequest, err,
				"graph text line %d", lineNo+1)
		}

		switch {
		case depth == 0:
			if root != nil {
				return nil, errors.New(errors.ErrCodeInvalidRequest,
					"graph text line %d: multiple roots", lineNo+1)
			}
			root = node
		case depth > len(stack):
			return nil, errors.New(errors.ErrCodeInvalidRequest,
				"graph text line %d: indentation skips a level", lineNo+1)
		default:
			parent := stack[depth-1]
			parent.Children = append(parent.Children, node)
		}

		stack = append(stack[:depth:depth], node)
	}

	if root == nil {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "empty graph text")
	}
	return root, nil
}

func parseToken(token string) (*Node, error) {
	if token == rootToken {
		return &Node{}, nil
	}

	optional := strings.HasSuffix(token, "?")
	token = strings.TrimSuffix(token, "?")

	coords, scope, _ := strings.Cut(token, "@")
	coord, err := artifact.Parse(coords)
	if err != nil {
		return nil, err
	}

	dep := artifact.NewDependency(coord, scope)
	if optional {
		dep = dep.WithOptional(true)
	}
	return NewNode(&dep), nil
}
