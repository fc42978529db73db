package services

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoFrontMatter      = errors.New("frontmatter: no delimited block found")
	ErrInvalidFrontMatter = errors.New("frontmatter: block could not be parsed")
)

var (
	yamlBlock = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---[ \t]*(?:\r?\n|$)(.*)`)
	tomlBlock = regexp.MustCompile(`(?s)^\+\+\+\s*\n(.*?)\n\+\+\+[ \t]*(?:\r?\n|$)(.*)`)
)

// ParseFrontMatter splits a Markdown document into its frontmatter mapping,
// body and format ("yaml" or "toml").
func ParseFrontMatter(content []byte) (map[string]interface{}, string, string, error) {
	str := normalizeLineEndings(string(bytes.TrimPrefix(content, []byte("\uFEFF"))))

	// Check for YAML (---)
	if m := yamlBlock.FindStringSubmatch(str); m != nil {
		var fm map[string]interface{}
		if err := yaml.Unmarshal([]byte(m[1]), &fm); err != nil {
			return nil, "", "", fmt.Errorf("%w: %v", ErrInvalidFrontMatter, err)
		}
		keepTimestampText([]byte(m[1]), fm)
		return finishFrontMatter(fm, m[2], "yaml")
	}
	// Check for TOML (+++)
	if m := tomlBlock.FindStringSubmatch(str); m != nil {
		var fm map[string]interface{}
		if err := toml.Unmarshal([]byte(m[1]), &fm); err != nil {
			return nil, "", "", fmt.Errorf("%w: %v", ErrInvalidFrontMatter, err)
		}
		return finishFrontMatter(fm, m[2], "toml")
	}

	return nil, "", "", ErrNoFrontMatter
}

// keepTimestampText puts back the source text of top-level plain scalars
// that yaml resolved to timestamps, so zone-less dates are read by the date
// normalizer in its own location instead of as UTC.
func keepTimestampText(block []byte, fm map[string]interface{}) {
	if len(fm) == 0 {
		return
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(block, &doc); err != nil || len(doc.Content) == 0 {
		return
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if value.Kind == yaml.ScalarNode && value.ShortTag() == "!!timestamp" {
			if _, ok := fm[key.Value]; ok {
				fm[key.Value] = value.Value
			}
		}
	}
}

func finishFrontMatter(fm map[string]interface{}, body, format string) (map[string]interface{}, string, string, error) {
	if len(fm) == 0 {
		return nil, "", "", ErrNoFrontMatter
	}
	return sanitizeFrontMatter(fm), strings.TrimSpace(body), format, nil
}

// ConstructFileContent serializes fm between markers, followed by a blank
// line and the body.
func ConstructFileContent(fm map[string]interface{}, body string, format string) ([]byte, error) {
	normalizedFM := sanitizeFrontMatter(fm)
	if normalizedFM == nil {
		normalizedFM = map[string]interface{}{}
	}

	var buf bytes.Buffer
	switch format {
	case "yaml", "":
		buf.WriteString("---\n")
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(normalizedFM); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		buf.WriteString("---\n")
	case "toml":
		buf.WriteString("+++\n")
		enc := toml.NewEncoder(&buf)
		if err := enc.Encode(normalizedFM); err != nil {
			return nil, err
		}
		buf.WriteString("+++\n")
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	buf.WriteString("\n")
	if body != "" {
		buf.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			buf.WriteString("\n")
		}
	}

	return buf.Bytes(), nil
}

func sanitizeFrontMatter(fm map[string]interface{}) map[string]interface{} {
	if fm == nil {
		return nil
	}
	sanitized := make(map[string]interface{}, len(fm))
	for k, v := range fm {
		sanitized[k] = sanitizeFrontMatterValue(v)
	}
	return sanitized
}

func sanitizeFrontMatterValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return sanitizeFrontMatter(v)
	case map[interface{}]interface{}:
		normalized := make(map[string]interface{}, len(v))
		for key, inner := range v {
			normalized[fmt.Sprint(key)] = sanitizeFrontMatterValue(inner)
		}
		return normalized
	case []interface{}:
		slice := make([]interface{}, len(v))
		for i := range v {
			slice[i] = sanitizeFrontMatterValue(v[i])
		}
		return slice
	case []string:
		slice := make([]interface{}, len(v))
		for i := range v {
			slice[i] = v[i]
		}
		return slice
	default:
		return v
	}
}

func normalizeLineEndings(input string) string {
	return strings.ReplaceAll(input, "\r\n", "\n")
}

// stringValue reads a scalar frontmatter value as text.
func stringValue(fm map[string]interface{}, key string) string {
	switch v := fm[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// listValue reads a sequence (or a lone scalar) as a list of labels.
func listValue(fm map[string]interface{}, key string) []string {
	var items []interface{}
	switch v := fm[key].(type) {
	case nil:
		return nil
	case []interface{}:
		items = v
	default:
		items = []interface{}{v}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// boolValue reads a flag that may have been written as a bool or a string.
func boolValue(fm map[string]interface{}, key string) bool {
	switch v := fm[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			return true
		}
	}
	return false
}
