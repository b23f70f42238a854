package bundler

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mrhapile/metadeploy/pkg/types"
)

// Group names filled only by CustomObject extraction.
const (
	GroupCustomField    = string(types.CustomField)
	GroupValidationRule = string(types.ValidationRule)
)

const (
	fieldElement          = "fields"
	validationRuleElement = "validationRules"
	fullNameElement       = "fullName"
)

// ManifestBuilder accumulates manifest entries in input order.
type ManifestBuilder struct {
	cfg      *config
	manifest types.Manifest
	index    map[string]int
}

func NewManifestBuilder(opts ...Option) *ManifestBuilder {
	return newManifestBuilder(newConfig(opts))
}

func newManifestBuilder(cfg *config) *ManifestBuilder {
	return &ManifestBuilder{
		cfg: cfg,
		manifest: types.Manifest{
			Version:   cfg.apiVersion,
			Namespace: cfg.namespace,
		},
		index: make(map[string]int),
	}
}

// Add records e. A CustomObject also contributes the fields and validation
// rules declared in its content; if that content cannot be read nothing from
// e is recorded.
func (mb *ManifestBuilder) Add(e types.MetadataEntity) error {
	if types.EntityType(e.Type) != types.CustomObject {
		mb.append(e.Type, memberName(e))
		return nil
	}

	objectID := mb.objectIdentifier(e.Name)
	fields, rules, err := extractNested(e.Content, mb.cfg.namespace)
	if err != nil {
		return &MalformedContentError{Entity: objectID, Err: err}
	}

	mb.append(e.Type, objectID)
	for _, f := range fields {
		mb.append(GroupCustomField, objectID+"."+f)
	}
	for _, r := range rules {
		mb.append(GroupValidationRule, objectID+"."+r)
	}
	return nil
}

// Build returns the accumulated manifest.
func (mb *ManifestBuilder) Build() types.Manifest {
	return mb.manifest
}

// append adds member to group. Duplicates are kept.
func (mb *ManifestBuilder) append(group, member string) {
	i, ok := mb.index[group]
	if !ok {
		i = len(mb.manifest.Groups)
		mb.index[group] = i
		mb.manifest.Groups = append(mb.manifest.Groups, types.ManifestGroup{Name: group})
	}
	mb.manifest.Groups[i].Members = append(mb.manifest.Groups[i].Members, member)
}

func (mb *ManifestBuilder) objectIdentifier(name string) string {
	if strings.HasSuffix(name, mb.cfg.objectSuffix) {
		return name
	}
	return name + mb.cfg.objectSuffix
}

// memberName is the identifier of a non-object entity. Object-scoped types
// are qualified with their parent when one is given.
func memberName(e types.MetadataEntity) string {
	switch types.EntityType(e.Type) {
	case types.CustomField, types.ValidationRule:
		if e.ObjectName != "" {
			return e.ObjectName + "." + e.Name
		}
	}
	return e.Name
}

// BuildManifest builds the manifest for entities. It stops at the first
// malformed CustomObject.
func BuildManifest(entities []types.MetadataEntity, opts ...Option) (types.Manifest, error) {
	return buildManifest(entities, newConfig(opts))
}

func buildManifest(entities []types.MetadataEntity, cfg *config) (types.Manifest, error) {
	mb := newManifestBuilder(cfg)
	for _, e := range entities {
		if err := mb.Add(e); err != nil {
			return types.Manifest{}, err
		}
	}
	return mb.Build(), nil
}

// xmlNode is a generic element tree.
type xmlNode struct {
	XMLName xml.Name
	Nodes   []xmlNode
	Text    string
}

// xmlNamespace is bound to the xml prefix without a declaration.
const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// parseTree reads exactly one root element. Trailing content other than
// whitespace, comments and processing instructions is an error, as is an
// element whose prefix was never declared.
func parseTree(content string) (*xmlNode, error) {
	dec := xml.NewDecoder(strings.NewReader(content))

	var (
		root   xmlNode
		seen   bool
		stack  []*xmlNode
		scopes [][]string
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if seen && len(stack) == 0 {
				return nil, fmt.Errorf("element <%s> after the root element", t.Name.Local)
			}
			scopes = append(scopes, declaredNamespaces(t.Attr))
			if !inScope(scopes, t.Name.Space) {
				return nil, fmt.Errorf("undeclared namespace prefix %q on <%s>", t.Name.Space, t.Name.Local)
			}
			node := xmlNode{XMLName: t.Name}
			if len(stack) == 0 {
				root, seen = node, true
				stack = append(stack, &root)
				continue
			}
			parent := stack[len(stack)-1]
			parent.Nodes = append(parent.Nodes, node)
			stack = append(stack, &parent.Nodes[len(parent.Nodes)-1])
		case xml.EndElement:
			stack = stack[:len(stack)-1]
			scopes = scopes[:len(scopes)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			} else if len(bytes.TrimSpace(t)) > 0 {
				return nil, errors.New("text outside the root element")
			}
		case xml.Directive:
			if seen {
				return nil, errors.New("directive after the root element")
			}
		}
	}

	if !seen {
		return nil, errors.New("no root element")
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("unclosed element <%s>", stack[len(stack)-1].XMLName.Local)
	}
	return &root, nil
}

func declaredNamespaces(attrs []xml.Attr) []string {
	var out []string
	for _, a := range attrs {
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
			out = append(out, a.Value)
		}
	}
	return out
}

// inScope reports whether space is empty or a URI declared on the element
// or one of its ancestors. The decoder leaves an unbound prefix in Space.
func inScope(scopes [][]string, space string) bool {
	if space == "" || space == xmlNamespace {
		return true
	}
	for _, uris := range scopes {
		for _, u := range uris {
			if u == space {
				return true
			}
		}
	}
	return false
}

// extractNested returns the fullName of every field and validation rule
// declared anywhere below the document root, in document order.
func extractNested(content, namespace string) (fields, rules []string, err error) {
	root, err := parseTree(content)
	if err != nil {
		return nil, nil, fmt.Errorf("parse object xml: %w", err)
	}

	var walk func(n *xmlNode) error
	walk = func(n *xmlNode) error {
		for i := range n.Nodes {
			child := &n.Nodes[i]
			if child.XMLName.Space == namespace {
				switch child.XMLName.Local {
				case fieldElement:
					name, err := fullName(child, namespace)
					if err != nil {
						return err
					}
					fields = append(fields, name)
				case validationRuleElement:
					name, err := fullName(child, namespace)
					if err != nil {
						return err
					}
					rules = append(rules, name)
				}
			}
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, nil, err
	}
	return fields, rules, nil
}

// fullName returns the text of the first fullName child verbatim.
func fullName(n *xmlNode, namespace string) (string, error) {
	for _, c := range n.Nodes {
		if c.XMLName.Space == namespace && c.XMLName.Local == fullNameElement {
			if c.Text != "" {
				return c.Text, nil
			}
			break
		}
	}
	return "", errors.New("<" + n.XMLName.Local + "> without " + fullNameElement)
}

// EncodeManifest serializes m in the fixed package.xml layout. The output
// depends only on m.
func EncodeManifest(m types.Manifest) []byte {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<Package xmlns="` + escape(m.Namespace) + `">` + "\n")
	for _, g := range m.Groups {
		b.WriteString("  <types>\n")
		for _, member := range g.Members {
			b.WriteString("    <members>" + escape(member) + "</members>\n")
		}
		b.WriteString("    <name>" + escape(g.Name) + "</name>\n")
		b.WriteString("  </types>\n")
	}
	b.WriteString("  <version>" + escape(m.Version) + "</version>\n")
	b.WriteString("</Package>")
	return b.Bytes()
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
