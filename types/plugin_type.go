package types

import (
	"fmt"
	"strings"
)

// PluginType categorizes a plugin for hosts that group or filter plugins.
type PluginType string

const (
	PluginTypeDatasource   PluginType = "DATASOURCE"
	PluginTypeHardware     PluginType = "HARDWARE"
	PluginTypeSecurity     PluginType = "SECURITY"
	PluginTypeNotification PluginType = "NOTIFICATION"
	PluginTypeStorage      PluginType = "STORAGE"
	PluginTypeAI           PluginType = "AI"
	PluginTypeCustom       PluginType = "CUSTOM"
)

// AllPluginTypes returns every known plugin type.
func AllPluginTypes() []PluginType {
	return []PluginType{
		PluginTypeDatasource,
		PluginTypeHardware,
		PluginTypeSecurity,
		PluginTypeNotification,
		PluginTypeStorage,
		PluginTypeAI,
		PluginTypeCustom,
	}
}

// String returns the type name.
func (t PluginType) String() string {
	return string(t)
}

// IsValid reports whether t is one of the known plugin types.
func (t PluginType) IsValid() bool {
	for _, known := range AllPluginTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// ParsePluginType parses a type name case-insensitively. The empty string
// parses as PluginTypeCustom.
func ParsePluginType(s string) (PluginType, error) {
	if strings.TrimSpace(s) == "" {
		return PluginTypeCustom, nil
	}
	t := PluginType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("unknown plugin type: %q", s)
	}
	return t, nil
}
