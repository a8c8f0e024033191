package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Encoding is the on-disk syntax of a manifest.
type Encoding int

const (
	// EncodingJSON is used for package.json and any non-YAML extension.
	EncodingJSON Encoding = iota
	// EncodingYAML is used for .yaml and .yml manifests.
	EncodingYAML
)

const (
	tagString = "!!str"
	tagMap    = "!!map"
	tagSeq    = "!!seq"
	tagInt    = "!!int"
	tagFloat  = "!!float"
	tagBool   = "!!bool"
	tagNull   = "!!null"

	yamlIndent = 2
)

var (
	errNotMapping   = errors.New("manifest root is not an object")
	errEmptyDoc     = errors.New("manifest is empty")
	errMissingField = errors.New("manifest field is missing or empty")
	errFieldType    = errors.New("manifest field has unexpected type")
)

// EncodingFor picks the encoding from the manifest file extension.
func EncodingFor(path string) Encoding {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return EncodingYAML
	default:
		return EncodingJSON
	}
}

// Document is a parsed manifest.
type Document struct {
	// doc is the yaml DocumentNode; doc.Content[0] is the root mapping.
	doc      *yaml.Node
	encoding Encoding
}

// Parse decodes data using enc and checks that the root is a mapping.
func Parse(data []byte, enc Encoding) (*Document, error) {
	var (
		doc *yaml.Node
		err error
	)

	switch enc {
	case EncodingYAML:
		doc = new(yaml.Node)
		err = yaml.Unmarshal(data, doc)
	default:
		doc, err = decodeJSON(data)
	}

	if err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errEmptyDoc
	}

	if doc.Content[0].Kind != yaml.MappingNode {
		return nil, errNotMapping
	}

	collapseDuplicateKeys(doc.Content[0])

	return &Document{doc: doc, encoding: enc}, nil
}

// Encode renders the document in its original encoding.
func (d *Document) Encode() ([]byte, error) {
	if d.encoding == EncodingYAML {
		var buf bytes.Buffer

		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(yamlIndent)

		if err := enc.Encode(d.doc); err != nil {
			return nil, fmt.Errorf("encode manifest: %w", err)
		}

		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode manifest: %w", err)
		}

		return buf.Bytes(), nil
	}

	return encodeJSON(d.doc)
}

// Encoding returns the syntax the document was parsed from.
func (d *Document) Encoding() Encoding {
	return d.encoding
}

// Name returns the project name.
func (d *Document) Name() string {
	value, _ := d.String(keyName)
	return value
}

// Version returns the project version.
func (d *Document) Version() string {
	value, _ := d.String(keyVersion)
	return value
}

// RuntimeConstraint returns engines.node.
func (d *Document) RuntimeConstraint() (string, bool) {
	return d.String(keyEngines, keyNode)
}

// OS returns the os list.
func (d *Document) OS() ([]string, bool) {
	return d.StringList(keyOS)
}

// CPU returns the cpu list.
func (d *Document) CPU() ([]string, bool) {
	return d.StringList(keyCPU)
}

// Validate ensures the fields the archive name is built from are present.
func (d *Document) Validate() error {
	for _, key := range []string{keyName, keyVersion} {
		if value, _ := d.String(key); value == "" {
			return fmt.Errorf("%w: %s", errMissingField, key)
		}
	}

	return nil
}

// String returns the scalar at path.
func (d *Document) String(path ...string) (string, bool) {
	node := d.lookup(path...)
	if node == nil || node.Kind != yaml.ScalarNode || node.ShortTag() == tagNull {
		return "", false
	}

	return node.Value, true
}

// StringList returns the sequence of scalars at path.
func (d *Document) StringList(path ...string) ([]string, bool) {
	node := d.lookup(path...)
	if node == nil || node.Kind != yaml.SequenceNode {
		return nil, false
	}

	result := make([]string, 0, len(node.Content))

	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, false
		}

		result = append(result, item.Value)
	}

	return result, true
}

// SetString stores value at path, creating intermediate objects as needed.
func (d *Document) SetString(value string, path ...string) error {
	return d.set(stringNode(value), path...)
}

// SetStringList stores values as a sequence at path, creating intermediate objects as needed.
func (d *Document) SetStringList(values []string, path ...string) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: tagSeq, Style: yaml.FlowStyle}
	for _, value := range values {
		seq.Content = append(seq.Content, stringNode(value))
	}

	return d.set(seq, path...)
}

func (d *Document) root() *yaml.Node {
	return d.doc.Content[0]
}

func (d *Document) lookup(path ...string) *yaml.Node {
	node := d.root()

	for _, key := range path {
		if node.Kind != yaml.MappingNode {
			return nil
		}

		_, node = mappingValue(node, key)
		if node == nil {
			return nil
		}
	}

	return node
}

func (d *Document) set(value *yaml.Node, path ...string) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: empty path", errFieldType)
	}

	parent := d.root()

	for i, key := range path[:len(path)-1] {
		_, child := mappingValue(parent, key)
		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode, Tag: tagMap}
			parent.Content = append(parent.Content, stringNode(key), child)
		}

		if child.Kind != yaml.MappingNode {
			return fmt.Errorf("%w: %s is not an object", errFieldType, strings.Join(path[:i+1], "."))
		}

		parent = child
	}

	last := path[len(path)-1]
	if idx, existing := mappingValue(parent, last); existing != nil {
		// Keep comments attached to the replaced value.
		value.HeadComment = existing.HeadComment
		value.LineComment = existing.LineComment
		value.FootComment = existing.FootComment
		parent.Content[idx] = value

		return nil
	}

	parent.Content = append(parent.Content, stringNode(last), value)

	return nil
}

// mappingValue returns the index and node of key's value in a mapping node.
func mappingValue(mapping *yaml.Node, key string) (int, *yaml.Node) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return i + 1, mapping.Content[i+1]
		}
	}

	return -1, nil
}

// collapseDuplicateKeys leaves one pair per key in every mapping under node.
// The last value of a repeated key wins and takes the position of the first,
// which is how JSON.parse reads such objects.
func collapseDuplicateKeys(node *yaml.Node) {
	if node.Kind == yaml.MappingNode {
		seen := make(map[string]int, len(node.Content)/2)
		content := node.Content[:0]

		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]

			if idx, ok := seen[key.Value]; ok {
				content[idx+1] = value
				continue
			}

			seen[key.Value] = len(content)
			content = append(content, key, value)
		}

		node.Content = content
	}

	if node.Kind == yaml.AliasNode {
		return
	}

	for _, child := range node.Content {
		collapseDuplicateKeys(child)
	}
}

func stringNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagString, Value: value}
}
