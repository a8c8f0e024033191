package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const jsonIndent = "  "

var utf8BOM = []byte("\xEF\xBB\xBF")

var (
	errTrailingData = errors.New("unexpected data after the top-level value")
	errJSONToken    = errors.New("unexpected json token")
	errUnknownNode  = errors.New("node kind cannot be rendered as json")
)

// decodeJSON reads a JSON document into a yaml node tree, keeping object key order.
// A leading byte order mark is ignored.
func decodeJSON(data []byte) (*yaml.Node, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	dec.UseNumber()

	value, err := decodeJSONValue(dec)
	if err != nil {
		return nil, err
	}

	if _, err = dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}

	return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{value}}, nil
}

func decodeJSONValue(dec *json.Decoder) (*yaml.Node, error) {
	token, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch value := token.(type) {
	case json.Delim:
		switch value {
		case '{':
			return decodeJSONObject(dec)
		case '[':
			return decodeJSONArray(dec)
		default:
			return nil, fmt.Errorf("%w: %q", errJSONToken, value)
		}
	case string:
		return stringNode(value), nil
	case json.Number:
		tag := tagInt
		if strings.ContainsAny(value.String(), ".eE") {
			tag = tagFloat
		}

		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value.String()}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagBool, Value: fmt.Sprint(value)}, nil
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tagNull, Value: "null"}, nil
	default:
		return nil, fmt.Errorf("%w: %v", errJSONToken, token)
	}
}

func decodeJSONObject(dec *json.Decoder) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: tagMap}

	for dec.More() {
		token, err := dec.Token()
		if err != nil {
			return nil, err
		}

		key, ok := token.(string)
		if !ok {
			return nil, fmt.Errorf("%w: object key %v", errJSONToken, token)
		}

		value, err := decodeJSONValue(dec)
		if err != nil {
			return nil, err
		}

		node.Content = append(node.Content, stringNode(key), value)
	}

	// Closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	return node, nil
}

func decodeJSONArray(dec *json.Decoder) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Tag: tagSeq}

	for dec.More() {
		value, err := decodeJSONValue(dec)
		if err != nil {
			return nil, err
		}

		node.Content = append(node.Content, value)
	}

	// Closing bracket.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	return node, nil
}

// encodeJSON renders a node tree as two-space indented JSON with a trailing newline.
func encodeJSON(doc *yaml.Node) ([]byte, error) {
	var compact bytes.Buffer
	if err := writeJSON(&compact, doc); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", jsonIndent); err != nil {
		return nil, fmt.Errorf("indent manifest: %w", err)
	}

	out.WriteByte('\n')

	return out.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, node *yaml.Node) error {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return errEmptyDoc
		}

		return writeJSON(buf, node.Content[0])
	case yaml.AliasNode:
		return writeJSON(buf, node.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')

		for i := 0; i+1 < len(node.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}

			if err := writeJSONString(buf, node.Content[i].Value); err != nil {
				return err
			}

			buf.WriteByte(':')

			if err := writeJSON(buf, node.Content[i+1]); err != nil {
				return err
			}
		}

		buf.WriteByte('}')

		return nil
	case yaml.SequenceNode:
		buf.WriteByte('[')

		for i, item := range node.Content {
			if i > 0 {
				buf.WriteByte(',')
			}

			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}

		buf.WriteByte(']')

		return nil
	case yaml.ScalarNode:
		return writeJSONScalar(buf, node)
	default:
		return fmt.Errorf("%w: %d", errUnknownNode, node.Kind)
	}
}

func writeJSONScalar(buf *bytes.Buffer, node *yaml.Node) error {
	switch node.ShortTag() {
	case tagNull:
		buf.WriteString("null")
	case tagBool, tagInt, tagFloat:
		if !json.Valid([]byte(node.Value)) {
			return writeJSONString(buf, node.Value)
		}

		buf.WriteString(node.Value)
	default:
		return writeJSONString(buf, node.Value)
	}

	return nil
}

// writeJSONString quotes s without HTML escaping, matching what npm writes.
func writeJSONString(buf *bytes.Buffer, s string) error {
	var quoted bytes.Buffer

	enc := json.NewEncoder(&quoted)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(s); err != nil {
		return err
	}

	buf.Write(bytes.TrimRight(quoted.Bytes(), "\n"))

	return nil
}
