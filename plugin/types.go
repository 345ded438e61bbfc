package plugin

import "github.com/zero-day-ai/bolt/types"

// ActionDescriptor describes a plugin action.
type ActionDescriptor struct {
	// Name is the unique identifier for the action within the plugin.
	Name string `json:"name"`

	// Description provides a human-readable explanation of what the action does.
	Description string `json:"description,omitempty"`
}

// Descriptor describes a plugin's metadata.
type Descriptor struct {
	ID          string             `json:"id"`
	Version     string             `json:"version"`
	Name        string             `json:"name"`
	Type        types.PluginType   `json:"type"`
	Description string             `json:"description,omitempty"`
	Author      string             `json:"author,omitempty"`
	Actions     []ActionDescriptor `json:"actions"`
}

// actionDescriber is implemented by plugins that keep per-action
// descriptions, such as *Runtime.
type actionDescriber interface {
	ActionDescription(action string) string
}

// ToDescriptor converts a Plugin to its Descriptor. Actions reflect the
// currently registered set, so an uninitialized plugin reports none.
func ToDescriptor(p Plugin) Descriptor {
	names := p.SupportedActions()
	actions := make([]ActionDescriptor, 0, len(names))
	describer, _ := p.(actionDescriber)
	for _, name := range names {
		ad := ActionDescriptor{Name: name}
		if describer != nil {
			ad.Description = describer.ActionDescription(name)
		}
		actions = append(actions, ad)
	}

	return Descriptor{
		ID:          p.ID(),
		Version:     p.Version(),
		Name:        p.Name(),
		Type:        p.Type(),
		Description: p.Description(),
		Author:      p.Author(),
		Actions:     actions,
	}
}
