package shardtree

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// TableConfig carries the migration metadata stamped on every node parsed
// from a desired-state description.
type TableConfig struct {
	SourceType string `yaml:"source_type"`
	DestType   string `yaml:"dest_type"`
}

// FromConfig parses the structural config form into a template tree. A node
// is a shard definition string, or a single-key mapping from a definition to
// one nested node or a list of nested nodes.
//
// Definitions follow the grammar `type[:arg1[:arg2]]`. Logical kinds take an
// optional integer weight and never a host. Concrete kinds require a host
// and take an optional integer weight.
func FromConfig(conf TableConfig, node interface{}) (t *Template, err error) {
	switch n := node.(type) {
	case string:
		return parseDefinition(conf, n, nil)
	case map[string]interface{}:
		if len(n) != 1 {
			err = fmt.Errorf("%w: node mapping must have exactly one key, has %d", ErrInvalidDefinition, len(n))
			return
		}
		for def, val := range n {
			var children []*Template
			children, err = childNodes(conf, def, val)
			if err != nil {
				return
			}
			return parseDefinition(conf, def, children)
		}
	}
	err = fmt.Errorf("%w: unexpected node %#v", ErrInvalidDefinition, node)
	return
}

func childNodes(conf TableConfig, def string, val interface{}) (children []*Template, err error) {
	var child *Template
	switch v := val.(type) {
	case []interface{}:
		for _, item := range v {
			child, err = FromConfig(conf, item)
			if err != nil {
				return
			}
			children = append(children, child)
		}
	default:
		child, err = FromConfig(conf, val)
		if err != nil {
			return
		}
		children = append(children, child)
	}
	return
}

func parseDefinition(conf TableConfig, def string, children []*Template) (t *Template, err error) {
	parts := strings.Split(def, ":")
	if len(parts) > 3 {
		err = fmt.Errorf("%w: too many arguments in %q", ErrInvalidDefinition, def)
		return
	}
	kind := parts[0]
	host := ""
	weight := defaultWeight
	short := shortKind(kind)
	if short == KindReplicating {
		// A host must never be supplied for a Replicating shard.
		if len(parts) > 2 {
			err = fmt.Errorf("%w: %s takes at most a weight in %q", ErrInvalidDefinition, KindReplicating, def)
			return
		}
		if len(parts) == 2 {
			weight, err = strconv.Atoi(parts[1])
			if err != nil {
				err = fmt.Errorf("%w: %s takes a weight, not a host, in %q", ErrInvalidDefinition, KindReplicating, def)
				return
			}
		}
	} else if logicalKind(short) {
		// Fencing kinds take an optional host and weight.
		if len(parts) == 2 {
			if w, ok := parseInt(parts[1]); ok {
				weight = w
			} else {
				host = parts[1]
			}
		}
		if len(parts) == 3 {
			host = parts[1]
			if _, numeric := parseInt(host); numeric {
				err = fmt.Errorf("%w: host must not be a number in %q", ErrInvalidDefinition, def)
				return
			}
			var ok bool
			weight, ok = parseInt(parts[2])
			if !ok {
				err = fmt.Errorf("%w: weight must be an integer in %q", ErrInvalidDefinition, def)
				return
			}
		}
	} else {
		if len(parts) < 2 {
			err = fmt.Errorf("%w: concrete kind requires a host in %q", ErrInvalidDefinition, def)
			return
		}
		host = parts[1]
		if _, numeric := parseInt(host); numeric {
			err = fmt.Errorf("%w: concrete kind requires a host, got number, in %q", ErrInvalidDefinition, def)
			return
		}
		if len(parts) == 3 {
			var ok bool
			weight, ok = parseInt(parts[2])
			if !ok {
				err = fmt.Errorf("%w: weight must be an integer in %q", ErrInvalidDefinition, def)
				return
			}
		}
	}
	return NewTemplate(kind, host, weight, conf.SourceType, conf.DestType, children)
}

func parseInt(s string) (n int, ok bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// ToConfig renders a template tree back to the structural config form.
// The default weight is always omitted on output: round-tripping through
// FromConfig reproduces a structurally equal tree.
func ToConfig(t *Template) interface{} {
	def := t.Identifier()
	if t.weight != defaultWeight {
		def += ":" + strconv.Itoa(t.weight)
	}
	switch len(t.children) {
	case 0:
		return def
	case 1:
		return map[string]interface{}{def: ToConfig(t.children[0])}
	}
	list := make([]interface{}, len(t.children))
	for i, c := range t.children {
		list[i] = ToConfig(c)
	}
	return map[string]interface{}{def: list}
}

// ParseTemplate decodes the YAML text form of a desired-state description.
func ParseTemplate(b []byte, conf TableConfig) (t *Template, err error) {
	var node interface{}
	if err = yaml.Unmarshal(b, &node); err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
		return
	}
	return FromConfig(conf, node)
}

// RenderTemplate encodes a template to the YAML text form.
func RenderTemplate(t *Template) ([]byte, error) {
	return yaml.Marshal(ToConfig(t))
}
