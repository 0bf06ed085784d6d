// Package playback replays scripted user interaction against a mounted
// form and checks the outcome. Scripts are YAML:
//
//	name: married filer
//	steps:
//	  - action: check
//	    target: married-yes
//	  - action: type
//	    target: spouse-name
//	    value: Sam
//	  - action: blur
//	    expect:
//	      facts: {/spouseName: Sam}
//	      visible: [spouse]
package playback

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Actions a step can take.
const (
	ActionType     = "type"
	ActionCheck    = "check"
	ActionChoose   = "choose"
	ActionClick    = "click"
	ActionBlur     = "blur"
	ActionTab      = "tab"
	ActionShiftTab = "shift-tab"
	ActionContinue = "continue"
	ActionComplete = "complete"
	ActionReset    = "reset"
	ActionAdd      = "add"
	ActionRemove   = "remove"
	ActionLoad     = "load"
)

// Script is a named sequence of steps.
type Script struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step performs one action, then checks its expectations. A step with no
// action only checks.
type Step struct {
	Action string `yaml:"action,omitempty"`
	// Target is the id of the element acted on.
	Target string `yaml:"target,omitempty"`
	// Path names the collection for add and remove.
	Path  string `yaml:"path,omitempty"`
	Value string `yaml:"value,omitempty"`
	// Index selects the item remove deletes.
	Index  int     `yaml:"index,omitempty"`
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect lists what must hold after a step.
type Expect struct {
	// Facts maps fact paths onto their canonical text value.
	Facts map[string]string `yaml:"facts,omitempty"`
	// Absent facts have no value at all.
	Absent []string `yaml:"absent,omitempty"`
	// Incomplete facts hold a placeholder.
	Incomplete []string `yaml:"incomplete,omitempty"`
	// Hidden and Visible list element ids.
	Hidden  []string `yaml:"hidden,omitempty"`
	Visible []string `yaml:"visible,omitempty"`
	// Text maps element ids onto their trimmed text content.
	Text map[string]string `yaml:"text,omitempty"`
	// Values maps control ids onto their current value.
	Values map[string]string `yaml:"values,omitempty"`
	// Errors maps field paths onto their inline error; "" means none.
	Errors map[string]string `yaml:"errors,omitempty"`
	// Items maps collection paths onto their item count.
	Items map[string]int `yaml:"items,omitempty"`
	// Proceed is the result of the latest continue or complete.
	Proceed *bool `yaml:"proceed,omitempty"`
	// Query maps gjson paths over the serialized graph onto their value.
	Query map[string]string `yaml:"query,omitempty"`
}

// ParseScript reads a script from YAML.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if _, err := ParseSteps(s.Steps...); err != nil {
		return nil, err
	}
	return &s, nil
}

// ParseSteps builds an unnamed script from steps, validating each.
func ParseSteps(steps ...Step) (*Script, error) {
	for i, st := range steps {
		if err := st.validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return &Script{Steps: steps}, nil
}

// LoadScript reads a script file.
func LoadScript(filename string) (*Script, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return ParseScript(data)
}

func (st Step) validate() error {
	switch st.Action {
	case "":
		if st.Expect == nil {
			return fmt.Errorf("step has neither an action nor expectations")
		}
	case ActionType, ActionCheck, ActionChoose, ActionClick:
		if st.Target == "" {
			return fmt.Errorf("%s needs a target", st.Action)
		}
	case ActionAdd, ActionRemove:
		if st.Path == "" {
			return fmt.Errorf("%s needs a collection path", st.Action)
		}
	case ActionBlur, ActionTab, ActionShiftTab, ActionContinue, ActionComplete, ActionReset, ActionLoad:
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
	return nil
}
