// Package export renders a parsed configuration as structured data.
//
// The document has three members: "comments" (header key to value, null
// for comments without one), "root" and "vdoms" (vdom name to tree, empty
// for single-vdom files). Containers become maps, a Set with one value
// becomes a string and any other Set a list of strings, an Unset becomes
// null. Table entry identifiers and values are unquoted.
package export

import (
	"bytes"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"

	"github.com/psaab/fgtconf/pkg/config"
)

// Value converts a node to a protobuf value.
func Value(n config.Node) *structpb.Value {
	switch n := n.(type) {
	case *config.Set:
		if n.Len() == 1 {
			return structpb.NewStringValue(config.Unquote(n.First()))
		}
		list := make([]*structpb.Value, n.Len())
		for i, v := range n.Values() {
			list[i] = structpb.NewStringValue(config.Unquote(v))
		}
		return structpb.NewListValue(&structpb.ListValue{Values: list})
	case *config.Object:
		s := &structpb.Struct{Fields: make(map[string]*structpb.Value, n.Len())}
		for k, c := range n.All() {
			s.Fields[k] = Value(c)
		}
		return structpb.NewStructValue(s)
	case *config.Table:
		s := &structpb.Struct{Fields: make(map[string]*structpb.Value, n.Len())}
		for id, e := range n.All() {
			s.Fields[config.Unquote(id)] = Value(e)
		}
		return structpb.NewStructValue(s)
	}
	return structpb.NewNullValue()
}

// Struct converts a whole configuration.
func Struct(c *config.Config) *structpb.Struct {
	comments := &structpb.Struct{Fields: make(map[string]*structpb.Value, c.Comments.Len())}
	for _, k := range c.Comments.Keys() {
		comments.Fields[k] = commentValue(c.Comments, k)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"comments": structpb.NewStructValue(comments),
		"root":     Value(c.Root),
		"vdoms":    Value(c.VDOMs),
	}}
}

func commentValue(cm *config.Comments, key string) *structpb.Value {
	if !cm.HasValue(key) {
		return structpb.NewNullValue()
	}
	v, _ := cm.Get(key)
	return structpb.NewStringValue(v)
}

// JSON renders c as indented JSON. Member order follows protojson and is
// not the source order; use YAML when order matters.
func JSON(c *config.Config) ([]byte, error) {
	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(Struct(c))
	if err != nil {
		return nil, fmt.Errorf("export json: %w", err)
	}
	return out, nil
}

// YAMLNode converts n to a YAML node, keeping source order.
func YAMLNode(n config.Node) *yaml.Node {
	switch n := n.(type) {
	case *config.Set:
		if n.Len() == 1 {
			return scalar(config.Unquote(n.First()))
		}
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, v := range n.Values() {
			seq.Content = append(seq.Content, scalar(config.Unquote(v)))
		}
		return seq
	case *config.Object:
		m := mapping()
		for k, c := range n.All() {
			m.Content = append(m.Content, scalar(k), YAMLNode(c))
		}
		return m
	case *config.Table:
		m := mapping()
		for id, e := range n.All() {
			m.Content = append(m.Content, scalar(config.Unquote(id)), YAMLNode(e))
		}
		return m
	}
	return null()
}

// YAML renders c as a YAML document in source order.
func YAML(c *config.Config) ([]byte, error) {
	comments := mapping()
	for _, k := range c.Comments.Keys() {
		v := null()
		if c.Comments.HasValue(k) {
			s, _ := c.Comments.Get(k)
			v = scalar(s)
		}
		comments.Content = append(comments.Content, scalar(k), v)
	}
	doc := mapping()
	doc.Content = append(doc.Content,
		scalar("comments"), comments,
		scalar("root"), YAMLNode(c.Root),
		scalar("vdoms"), YAMLNode(c.VDOMs),
	)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("export yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("export yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func null() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}
