package recipe

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ibis/internal/ir"
)

// DefaultCapability is the capability of a node written as a 3-tuple.
const DefaultCapability = "any"

// FlagPlanning enables edge generation.
const FlagPlanning = "planning"

var knownFlags = map[string]struct{}{
	FlagPlanning: {},
}

// Document is a complete recipe document: configuration, the shared recipe
// and the list of recipes. Solve returns a Document of the same shape with
// the selected Solutions as its recipes.
//
// Config and the shared Recipe are flattened into the top level on the
// wire.
type Document struct {
	Config `yaml:",inline"`
	Recipe `yaml:",inline"`

	Recipes []Recipe `json:"recipes,omitempty" yaml:"recipes,omitempty"`

	NumUnchecked int `json:"num_unchecked_solutions,omitempty" yaml:"num_unchecked_solutions,omitempty"`
	NumSolutions int `json:"num_solutions,omitempty" yaml:"num_solutions,omitempty"`
	NumSelected  int `json:"num_selected,omitempty" yaml:"num_selected,omitempty"`
}

// Shared returns the top-level recipe whose facts apply to every recipe.
func (d *Document) Shared() *Recipe {
	return &d.Recipe
}

// Config holds the declarations shared by a whole document.
type Config struct {
	Flags           Flags  `json:"flags,omitempty" yaml:"flags,omitempty"`
	Subtypes        []Pair `json:"subtypes,omitempty" yaml:"subtypes,omitempty"`
	LessPrivateThan []Pair `json:"less_private_than,omitempty" yaml:"less_private_than,omitempty"`
	Capabilities    []Pair `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
}

// Recipe is one dataflow graph: nodes, privacy annotations and edges, plus
// the Feedback attached when it is a solve result.
type Recipe struct {
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	Nodes   []Node `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Claims  []Pair `json:"claims,omitempty" yaml:"claims,omitempty"`
	Checks  []Pair `json:"checks,omitempty" yaml:"checks,omitempty"`
	Trusted []Pair `json:"trusted_to_remove_tag,omitempty" yaml:"trusted_to_remove_tag,omitempty"`
	Edges   []Pair `json:"edges,omitempty" yaml:"edges,omitempty"`

	Feedback `yaml:",inline"`

	// Output only.
	Digest    string   `json:"digest,omitempty" yaml:"digest,omitempty"`
	Ancestors []string `json:"ancestors,omitempty" yaml:"ancestors,omitempty"`
	Warnings  []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Feedback is the analysis attached to a solved recipe. It is regenerated
// on every solve; feedback present in an input document is ignored.
type Feedback struct {
	HasTags          []HasTag          `json:"has_tags,omitempty" yaml:"has_tags,omitempty"`
	Leaks            []Leak            `json:"leaks,omitempty" yaml:"leaks,omitempty"`
	TypeErrors       []TypeError       `json:"type_errors,omitempty" yaml:"type_errors,omitempty"`
	CapabilityErrors []CapabilityError `json:"capability_errors,omitempty" yaml:"capability_errors,omitempty"`
}

// Valid reports whether the feedback holds no policy violation.
func (f Feedback) Valid() bool {
	return len(f.Leaks) == 0 && len(f.TypeErrors) == 0 && len(f.CapabilityErrors) == 0
}

// =============================================================================
// Flags
// =============================================================================

// Flags are the run switches of a document. Unknown flags are kept so that
// documents round-trip, and reported as warnings by Solve.
type Flags map[string]any

// Planning reports whether edge generation is enabled. Default: false.
func (f Flags) Planning() bool {
	b, _ := f[FlagPlanning].(bool)
	return b
}

// Warnings describes every unknown flag, sorted by name.
func (f Flags) Warnings() []string {
	var names []string
	for name := range f {
		if _, ok := knownFlags[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, fmt.Sprintf("Unknown flag '%s' set to: %s", name, flagValue(f[name])))
	}
	return out
}

func (f Flags) validate() error {
	if v, ok := f[FlagPlanning]; ok {
		if _, isBool := v.(bool); !isBool {
			return fmt.Errorf("flag %q must be a boolean, got %s", FlagPlanning, flagValue(v))
		}
	}
	return nil
}

func flagValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// =============================================================================
// Tuples
// =============================================================================

// Rows are written as JSON arrays and YAML flow sequences, e.g.
// ["p_a", "a", "write", "Unit"].

// Pair is a two-column row: subtype, capability, less_private_than, claim,
// check, trust and edge rows all use it.
type Pair struct {
	A string
	B string
}

// Node is a data handle of a particle.
type Node struct {
	Particle   string
	Handle     string
	Capability string
	Type       string
}

// HasTag records that Node carries Tag, claimed at Source.
type HasTag struct {
	Source string
	Node   string
	Tag    string
}

// Leak records a checked node carrying a tag more private than expected.
type Leak struct {
	Node     string
	Expected string
	Source   string
	Found    string
}

// TypeError records an edge between incompatible data types.
type TypeError struct {
	From     string
	FromType string
	To       string
	ToType   string
}

// CapabilityError records an edge whose capabilities are not admitted.
type CapabilityError struct {
	From    string
	FromCap string
	To      string
	ToCap   string
}

func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{p.A, p.B})
}

func (p *Pair) UnmarshalJSON(b []byte) error {
	return unmarshalRow(b, "pair", &p.A, &p.B)
}

func (p Pair) MarshalYAML() (any, error) {
	return flowRow(p.A, p.B), nil
}

func (p *Pair) UnmarshalYAML(n *yaml.Node) error {
	return decodeYAMLRow(n, "pair", &p.A, &p.B)
}

func (h HasTag) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{h.Source, h.Node, h.Tag})
}

func (h *HasTag) UnmarshalJSON(b []byte) error {
	return unmarshalRow(b, "has_tag", &h.Source, &h.Node, &h.Tag)
}

func (h HasTag) MarshalYAML() (any, error) {
	return flowRow(h.Source, h.Node, h.Tag), nil
}

func (h *HasTag) UnmarshalYAML(n *yaml.Node) error {
	return decodeYAMLRow(n, "has_tag", &h.Source, &h.Node, &h.Tag)
}

func (l Leak) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{l.Node, l.Expected, l.Source, l.Found})
}

func (l *Leak) UnmarshalJSON(b []byte) error {
	return unmarshalRow(b, "leak", &l.Node, &l.Expected, &l.Source, &l.Found)
}

func (l Leak) MarshalYAML() (any, error) {
	return flowRow(l.Node, l.Expected, l.Source, l.Found), nil
}

func (l *Leak) UnmarshalYAML(n *yaml.Node) error {
	return decodeYAMLRow(n, "leak", &l.Node, &l.Expected, &l.Source, &l.Found)
}

func (e TypeError) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{e.From, e.FromType, e.To, e.ToType})
}

func (e *TypeError) UnmarshalJSON(b []byte) error {
	return unmarshalRow(b, "type_error", &e.From, &e.FromType, &e.To, &e.ToType)
}

func (e TypeError) MarshalYAML() (any, error) {
	return flowRow(e.From, e.FromType, e.To, e.ToType), nil
}

func (e *TypeError) UnmarshalYAML(n *yaml.Node) error {
	return decodeYAMLRow(n, "type_error", &e.From, &e.FromType, &e.To, &e.ToType)
}

func (e CapabilityError) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{e.From, e.FromCap, e.To, e.ToCap})
}

func (e *CapabilityError) UnmarshalJSON(b []byte) error {
	return unmarshalRow(b, "capability_error", &e.From, &e.FromCap, &e.To, &e.ToCap)
}

func (e CapabilityError) MarshalYAML() (any, error) {
	return flowRow(e.From, e.FromCap, e.To, e.ToCap), nil
}

func (e *CapabilityError) UnmarshalYAML(n *yaml.Node) error {
	return decodeYAMLRow(n, "capability_error", &e.From, &e.FromCap, &e.To, &e.ToCap)
}

// MarshalJSON always writes the 4-column form.
func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{n.Particle, n.Handle, n.Capability, n.Type})
}

// UnmarshalJSON accepts [particle, handle, capability, type] and
// [particle, handle, type]; the latter uses DefaultCapability.
func (n *Node) UnmarshalJSON(b []byte) error {
	var cols []string
	if err := json.Unmarshal(b, &cols); err != nil {
		return fmt.Errorf("node: %w", err)
	}
	return n.set(cols)
}

// MarshalYAML always writes the 4-column form.
func (n Node) MarshalYAML() (any, error) {
	return flowRow(n.Particle, n.Handle, n.Capability, n.Type), nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	var cols []string
	if err := value.Decode(&cols); err != nil {
		return fmt.Errorf("node at line %d: %w", value.Line, err)
	}
	if err := n.set(cols); err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	return nil
}

func (n *Node) set(cols []string) error {
	switch len(cols) {
	case 3:
		*n = Node{Particle: cols[0], Handle: cols[1], Capability: DefaultCapability, Type: cols[2]}
	case 4:
		*n = Node{Particle: cols[0], Handle: cols[1], Capability: cols[2], Type: cols[3]}
	default:
		return fmt.Errorf("node: expected 3 or 4 columns, got %d", len(cols))
	}
	return nil
}

func unmarshalRow(b []byte, kind string, dst ...*string) error {
	var cols []string
	if err := json.Unmarshal(b, &cols); err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	return assignRow(cols, kind, dst)
}

func decodeYAMLRow(n *yaml.Node, kind string, dst ...*string) error {
	var cols []string
	if err := n.Decode(&cols); err != nil {
		return fmt.Errorf("%s at line %d: %w", kind, n.Line, err)
	}
	if err := assignRow(cols, kind, dst); err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	return nil
}

func assignRow(cols []string, kind string, dst []*string) error {
	if len(cols) != len(dst) {
		return fmt.Errorf("%s: expected %d columns, got %d", kind, len(dst), len(cols))
	}
	for i, p := range dst {
		*p = cols[i]
	}
	return nil
}

func flowRow(cols ...string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, c := range cols {
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c})
	}
	return n
}

// =============================================================================
// Views
// =============================================================================

// EdgeStrings renders r's edges as sorted "from -> to" strings.
func EdgeStrings(r Recipe) []string {
	out := make([]string, 0, len(r.Edges))
	for _, e := range r.Edges {
		out = append(out, e.A+" -> "+e.B)
	}
	sort.Strings(out)
	return out
}

// Solutions renders every recipe of d as its joined EdgeStrings and sorts
// the result. Two documents with the same Solutions compare equal
// regardless of recipe or edge order.
func Solutions(d *Document) []string {
	out := make([]string, 0, len(d.Recipes))
	for _, r := range d.Recipes {
		out = append(out, strings.Join(EdgeStrings(r), ", "))
	}
	sort.Strings(out)
	return out
}

// Digest returns the content address of d's solve input: configuration,
// flags and every recipe's facts and edges. Metadata, feedback, counters
// and row order do not contribute.
func (d *Document) Digest() (string, error) {
	recipes := d.Recipes
	if len(recipes) == 0 {
		recipes = []Recipe{{}}
	}
	rs := make([]any, 0, len(recipes))
	for _, r := range recipes {
		rs = append(rs, r.canonical())
	}
	flags := make(map[string]any, len(d.Flags))
	for name, v := range d.Flags {
		flags[name] = flagValue(v)
	}
	form := map[string]any{
		"flags":             flags,
		"subtypes":          pairRows(d.Subtypes),
		"less_private_than": pairRows(d.LessPrivateThan),
		"capabilities":      pairRows(d.Capabilities),
		"shared":            d.Recipe.canonical(),
		"recipes":           rs,
	}
	return ir.DocumentDigest(form)
}

func (r Recipe) canonical() map[string]any {
	nodes := make([]string, 0, len(r.Nodes))
	for _, n := range r.Nodes {
		nodes = append(nodes, strings.Join([]string{n.Particle, n.Handle, n.Capability, n.Type}, "\x00"))
	}
	sort.Strings(nodes)
	return map[string]any{
		"nodes":                 nodes,
		"claims":                pairRows(r.Claims),
		"checks":                pairRows(r.Checks),
		"trusted_to_remove_tag": pairRows(r.Trusted),
		"edges":                 pairRows(r.Edges),
	}
}

// pairRows renders rows as sorted, deduplicated "a\x00b" keys.
func pairRows(rows []Pair) []string {
	seen := make(map[string]struct{}, len(rows))
	out := make([]string, 0, len(rows))
	for _, p := range rows {
		k := p.A + "\x00" + p.B
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
