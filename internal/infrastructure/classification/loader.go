// Package classification loads the keyword table from disk and serves
// immutable snapshots of it.
package classification

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/scan-classifier/internal/core/domain"
)

// Parse decodes a mapping of document type to keyword list. JSON input is
// accepted as YAML. Decoding goes through yaml.Node so the file order of the
// types is preserved.
func Parse(data []byte) (domain.ClassificationConfig, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return domain.ClassificationConfig{}, invalid(fmt.Errorf("decode classification config: %w", err))
	}
	if root.Kind == 0 {
		return domain.ClassificationConfig{}, invalid(errors.New("classification config is empty"))
	}

	doc := &root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	if doc.Kind != yaml.MappingNode {
		return domain.ClassificationConfig{}, invalid(fmt.Errorf("classification config must be a mapping, line %d", doc.Line))
	}

	entries := make([]domain.TypeKeywords, 0, len(doc.Content)/2)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, value := doc.Content[i], doc.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return domain.ClassificationConfig{}, invalid(fmt.Errorf("document type at line %d must be a string", key.Line))
		}
		var keywords []string
		switch value.Kind {
		case yaml.SequenceNode:
			if err := value.Decode(&keywords); err != nil {
				return domain.ClassificationConfig{}, invalid(fmt.Errorf("keywords of %q: %w", key.Value, err))
			}
		case yaml.ScalarNode:
			if value.Tag != "!!null" {
				return domain.ClassificationConfig{}, invalid(fmt.Errorf("keywords of %q at line %d must be a list", key.Value, value.Line))
			}
		default:
			return domain.ClassificationConfig{}, invalid(fmt.Errorf("keywords of %q at line %d must be a list", key.Value, value.Line))
		}
		entries = append(entries, domain.TypeKeywords{Type: key.Value, Keywords: keywords})
	}
	return domain.NewClassificationConfig(entries...)
}

// LoadFile reads path. A missing file yields the built-in table and
// fromFile=false.
func LoadFile(path string) (cfg domain.ClassificationConfig, fromFile bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.DefaultClassificationConfig(), false, nil
	}
	if err != nil {
		return domain.ClassificationConfig{}, false, fmt.Errorf("read classification config: %w", err)
	}
	cfg, err = Parse(data)
	if err != nil {
		return domain.ClassificationConfig{}, false, err
	}
	return cfg, true, nil
}

func invalid(err error) error {
	return domain.WrapError(domain.ErrInvalidInput, "classification config", err)
}
