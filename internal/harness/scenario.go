package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ibis/internal/recipe"
)

// Scenario defines an end-to-end solve check: a recipe document, the solve
// options and assertions on the archived result.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Input is an inline recipe document.
	Input yaml.Node `yaml:"input,omitempty"`

	// InputFile is a recipe document path (.json, .yaml or .cue), relative
	// to the scenario file. Exactly one of Input and InputFile is set.
	InputFile string `yaml:"input_file,omitempty"`

	// Loss keeps Solutions within Loss edges of the largest; nil keeps all.
	Loss *int `yaml:"loss,omitempty"`

	// Planning overrides the document's planning flag when set.
	Planning *bool `yaml:"planning,omitempty"`

	// Assertions validate the solve result.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates the selected Solutions.
type Assertion struct {
	// Type specifies the assertion type:
	// - "solutions": the exact set of selected Solutions
	// - "solution_count": number of selected Solutions
	// - "leak_count": total leaks over the selected Solutions
	// - "contains_solution": one Solution is among the selected
	Type string `yaml:"type"`

	// Solutions lists Solutions as joined edge strings ("a -> b, b -> c").
	// The empty Solution is "".
	Solutions []string `yaml:"solutions,omitempty"`

	// Solution is a single joined edge string (contains_solution).
	Solution *string `yaml:"solution,omitempty"`

	// Count is the expected number (solution_count, leak_count).
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertSolutions        = "solutions"
	AssertSolutionCount    = "solution_count"
	AssertLeakCount        = "leak_count"
	AssertContainsSolution = "contains_solution"
)

// LoadScenario reads and parses a scenario YAML file. A relative
// input_file is resolved against the scenario's directory.
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving input_file relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.InputFile != "" && !filepath.IsAbs(scenario.InputFile) && basePath != "" {
		scenario.InputFile = filepath.Join(basePath, scenario.InputFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// Document decodes the scenario's recipe document.
func (s *Scenario) Document() (*recipe.Document, error) {
	if s.InputFile != "" {
		return recipe.Load(s.InputFile)
	}
	data, err := yaml.Marshal(&s.Input)
	if err != nil {
		return nil, fmt.Errorf("encode inline input: %w", err)
	}
	return recipe.Decode(data, recipe.FormatYAML)
}

func (s *Scenario) hasInput() bool {
	return !s.Input.IsZero()
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.hasInput() && s.InputFile != "":
		return fmt.Errorf("input and input_file are mutually exclusive")
	case !s.hasInput() && s.InputFile == "":
		return fmt.Errorf("one of input or input_file is required")
	}

	if s.InputFile != "" {
		if _, err := os.Stat(s.InputFile); os.IsNotExist(err) {
			return fmt.Errorf("input file not found: %s", s.InputFile)
		}
	}

	if s.Loss != nil && *s.Loss < 0 {
		return fmt.Errorf("loss must be non-negative")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSolutions:
		if a.Solutions == nil {
			return fmt.Errorf("assertions[%d]: solutions list is required for solutions", index)
		}
	case AssertSolutionCount, AssertLeakCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for %s", index, a.Type)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertContainsSolution:
		if a.Solution == nil {
			return fmt.Errorf("assertions[%d]: solution is required for contains_solution", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
