package policy

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Wildcard is the matcher that applies to every request.
const Wildcard = "all"

// Rule overrides the action, and optionally the template, for requests matching Matcher.
// Matcher is compared against the request path and the endpoint name.
type Rule struct {
	Matcher  string
	Action   Action
	Template string
}

// Table is an ordered list of rules. Later matching rules override earlier ones.
//
// In YAML it is a mapping from matcher to either an action, a {action, template} mapping or a
// [template, action] pair. Declaration order is kept.
type Table []Rule

type ruleValue struct {
	Action   Action `yaml:"action"`
	Template string `yaml:"template"`
}

// UnmarshalYAML decodes a mapping node while keeping key order.
func (t *Table) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: actions must be a mapping of route to action", node.Line)
	}

	rules := make(Table, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]

		rule := Rule{Matcher: keyNode.Value}
		switch valueNode.Kind {
		case yaml.ScalarNode:
			rule.Action = Action(valueNode.Value)

		case yaml.MappingNode:
			var v ruleValue
			if err := valueNode.Decode(&v); err != nil {
				return err
			}
			rule.Action, rule.Template = v.Action, v.Template

		case yaml.SequenceNode:
			var pair []string
			if err := valueNode.Decode(&pair); err != nil {
				return err
			}
			if len(pair) != 2 {
				return fmt.Errorf("line %d: route %q must be a [template, action] pair", valueNode.Line, rule.Matcher)
			}
			rule.Template, rule.Action = pair[0], Action(pair[1])

		default:
			return fmt.Errorf("line %d: unsupported value for route %q", valueNode.Line, rule.Matcher)
		}

		rules = append(rules, rule)
	}

	*t = rules
	return nil
}

// MarshalYAML writes the table back in its compact form.
func (t Table) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, r := range t {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: r.Matcher}
		var value *yaml.Node
		if r.Template == "" {
			value = &yaml.Node{Kind: yaml.ScalarNode, Value: string(r.Action)}
		} else {
			value = &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
				{Kind: yaml.ScalarNode, Value: "action"}, {Kind: yaml.ScalarNode, Value: string(r.Action)},
				{Kind: yaml.ScalarNode, Value: "template"}, {Kind: yaml.ScalarNode, Value: r.Template},
			}}
		}
		node.Content = append(node.Content, key, value)
	}
	return node, nil
}

// InvalidRules returns the rules whose action is unknown. Resolve ignores their action.
func (t Table) InvalidRules() (invalid []Rule) {
	for _, r := range t {
		if !r.Action.Valid() {
			invalid = append(invalid, r)
		}
	}
	return
}
