package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/stagehand/internal/record"
	"github.com/roach88/stagehand/internal/schema"
	"github.com/roach88/stagehand/internal/story"
)

// Definition is one parsed scenario file.
type Definition struct {
	// Name identifies the scenario.
	Name string `yaml:"name"`

	// Story is the root of the story tree.
	Story StoryDef `yaml:"story"`
}

// StoryDef describes one story node.
type StoryDef struct {
	Name      string        `yaml:"name"`
	Narrators []NarratorDef `yaml:"narrators"`
	Related   []StoryDef    `yaml:"related,omitempty"`
}

// NarratorDef binds a record type to field values, a repeat count, and
// declared relations.
type NarratorDef struct {
	// Narrative is the record type name the narrator builds.
	Narrative string `yaml:"narrative"`

	// Count repeats the build; values below one build once.
	Count int `yaml:"count,omitempty"`

	// Fields holds fixed field values for every built record.
	Fields map[string]any `yaml:"fields,omitempty"`

	// Relations declares discovery-driven links to records built
	// elsewhere in the scenario.
	Relations []RelationDef `yaml:"relations,omitempty"`
}

// RelationDef is the declarative form of story.Relation.
type RelationDef struct {
	Field       string `yaml:"field"`
	Target      string `yaml:"target"`
	TargetField string `yaml:"target_field"`
	TargetValue any    `yaml:"target_value"`
}

// Load reads and parses a scenario file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

// Parse parses scenario YAML and validates its structure.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if def.Name == "" {
		return nil, fmt.Errorf("parse scenario: name is required")
	}
	if err := validateStory(&def.Story, def.Name); err != nil {
		return nil, err
	}
	return &def, nil
}

func validateStory(sd *StoryDef, path string) error {
	if sd.Name != "" {
		path = path + "/" + sd.Name
	}
	if len(sd.Narrators) == 0 && len(sd.Related) == 0 {
		return fmt.Errorf("parse scenario: story %s has no narrators and no related stories", path)
	}
	for i, n := range sd.Narrators {
		if n.Narrative == "" {
			return fmt.Errorf("parse scenario: story %s narrator %d has no narrative", path, i)
		}
		for j, rel := range n.Relations {
			if rel.Field == "" || rel.Target == "" || rel.TargetField == "" {
				return fmt.Errorf("parse scenario: story %s narrator %d relation %d needs field, target, and target_field", path, i, j)
			}
		}
	}
	for i := range sd.Related {
		if err := validateStory(&sd.Related[i], path); err != nil {
			return err
		}
	}
	return nil
}

// Assemble turns the definition into a story tree against the registry.
// Every named record type must be registered; unknown types fail here,
// before any building starts.
func (d *Definition) Assemble(reg *schema.Registry) (*story.Story, error) {
	return assembleStory(&d.Story, d.Name, reg)
}

func assembleStory(sd *StoryDef, fallbackName string, reg *schema.Registry) (*story.Story, error) {
	name := sd.Name
	if name == "" {
		name = fallbackName
	}
	st := story.New(name)

	for i := range sd.Related {
		related, err := assembleStory(&sd.Related[i], fmt.Sprintf("%s/related-%d", name, i), reg)
		if err != nil {
			return nil, err
		}
		st.Relate(related)
	}

	for _, nd := range sd.Narrators {
		t := record.RecordType(nd.Narrative)
		if _, ok := reg.Lookup(t); !ok {
			return nil, fmt.Errorf("assemble %s: %w", name, &schema.UnknownTypeError{Type: t})
		}
		relations := make([]story.Relation, 0, len(nd.Relations))
		for _, rd := range nd.Relations {
			targetType := record.RecordType(rd.Target)
			if _, ok := reg.Lookup(targetType); !ok {
				return nil, fmt.Errorf("assemble %s: relation %s: %w", name, rd.Field, &schema.UnknownTypeError{Type: targetType})
			}
			relations = append(relations, story.Relation{
				Field:       rd.Field,
				Target:      &story.RecordNarrative{Type: targetType},
				TargetField: rd.TargetField,
				TargetValue: rd.TargetValue,
			})
		}
		narrative := &story.RecordNarrative{Type: t, Fields: nd.Fields}
		st.Narrate(story.NewNarrator(narrative, nd.Count, relations...))
	}
	return st, nil
}
