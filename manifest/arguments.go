package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/quasarmc/launchercore/rules"
)

// Arguments holds the modern (1.13+) argument lists.
type Arguments struct {
	Game []ArgumentEntry `json:"game,omitempty"`
	JVM  []ArgumentEntry `json:"jvm,omitempty"`
}

// ArgumentEntry is a tagged-variant argument token: either a plain literal
// string, or a rule-gated entry expanding to one or more tokens. Dispatch
// is by the Rules field being present, not by subtyping.
type ArgumentEntry struct {
	Literal string   // set when this entry is a bare string
	Rules   []Rule   // set when this entry is the {rules, value} object form
	Values  []string // one or more raw tokens (value may be string or []string)
}

// UnmarshalJSON accepts either a JSON string or a {rules, value} object.
func (a *ArgumentEntry) UnmarshalJSON(data []byte) error {
	var literal string
	if err := json.Unmarshal(data, &literal); err == nil {
		a.Literal = literal
		a.Values = []string{literal}
		return nil
	}

	var obj struct {
		Rules []Rule          `json:"rules"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("manifest: invalid argument entry: %w", err)
	}
	a.Rules = obj.Rules

	var single string
	if err := json.Unmarshal(obj.Value, &single); err == nil {
		a.Values = []string{single}
		return nil
	}

	var multi []string
	if err := json.Unmarshal(obj.Value, &multi); err != nil {
		return fmt.Errorf("manifest: invalid argument entry value: %w", err)
	}
	a.Values = multi
	return nil
}

// MarshalJSON round-trips the entry back to its original literal-or-object
// shape, used when caching resolved manifests to disk.
func (a ArgumentEntry) MarshalJSON() ([]byte, error) {
	if len(a.Rules) == 0 {
		if len(a.Values) == 1 {
			return json.Marshal(a.Values[0])
		}
		return json.Marshal(a.Values)
	}

	var value interface{}
	if len(a.Values) == 1 {
		value = a.Values[0]
	} else {
		value = a.Values
	}
	return json.Marshal(struct {
		Rules []Rule      `json:"rules"`
		Value interface{} `json:"value"`
	}{a.Rules, value})
}

// Expand evaluates the entry's rule gate (if any) under matcher and returns
// zero or more raw argument tokens.
func (a ArgumentEntry) Expand(matcher rules.FeatureMatcher) []string {
	if len(a.Rules) > 0 && evaluateRules(a.Rules, matcher) != rules.Allow {
		return nil
	}
	return a.Values
}

// ExpandAll expands every entry in order, concatenating their tokens.
func ExpandAll(entries []ArgumentEntry, matcher rules.FeatureMatcher) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.Expand(matcher)...)
	}
	return out
}
