// Package pluginreg provides loading, validation, and registration of
// gobiome plugin manifests.
//
// A plugin manifest is a YAML or JSON file describing one plugin: the
// software entry it registers under and the commands it exposes, including
// their parameters and optional merging-scheme participation.
//
// Example manifest (YAML):
//
//	version: "1.0"
//	software:
//	  name: deblur
//	  version: "2021.09"
//	  description: Deblur workflow for sOTU picking
//	commands:
//	  - name: Deblur 16S
//	    description: Run deblur against a reference
//	    parameters:
//	      - name: reference
//	        type: choice
//	        default: greengenes
//	      - name: trim-length
//	        type: integer
//	        required: true
//	    merging_scheme:
//	      parameter: reference
package pluginreg

// Manifest is a validated plugin manifest.
type Manifest struct {
	// Schema is an optional JSON Schema reference for editor support.
	Schema string `json:"$schema,omitempty" yaml:"$schema,omitempty"`

	// Version is the manifest format version. Must be "1.0".
	Version string `json:"version" yaml:"version"`

	// Software names the plugin this manifest registers.
	Software SoftwareSpec `json:"software" yaml:"software"`

	// Commands lists the operations the plugin exposes. At least one is
	// required.
	Commands []CommandSpec `json:"commands" yaml:"commands"`
}

// SoftwareSpec identifies a plugin by name and version.
type SoftwareSpec struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Active marks the plugin as runnable. Defaults to true.
	Active *bool `json:"active,omitempty" yaml:"active,omitempty"`
}

// CommandSpec describes one operation a plugin exposes.
type CommandSpec struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Parameters declares the command's accepted parameters.
	Parameters []ParameterSpec `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	// MergingScheme, when set, makes the command's outputs archivable
	// under a merging scheme label.
	MergingScheme *MergingSchemeSpec `json:"merging_scheme,omitempty" yaml:"merging_scheme,omitempty"`
}

// ParameterSpec declares one command parameter.
type ParameterSpec struct {
	Name string `json:"name" yaml:"name"`

	// Type is one of: artifact, boolean, choice, float, integer, reference,
	// string.
	Type string `json:"type" yaml:"type"`

	// Default is the value used when a job omits the parameter. Optional.
	Default any `json:"default,omitempty" yaml:"default,omitempty"`

	// Required marks parameters every job must supply.
	Required bool `json:"required,omitempty" yaml:"required,omitempty"`
}

// MergingSchemeSpec configures merging-scheme participation. Parameter
// optionally names the command parameter folded into the scheme label.
type MergingSchemeSpec struct {
	Parameter string `json:"parameter,omitempty" yaml:"parameter,omitempty"`
}

// DefaultVersion is the current manifest format version.
const DefaultVersion = "1.0"

// ApplyDefaults fills in default values for optional fields. Called after
// loading and validation.
func (m *Manifest) ApplyDefaults() {
	if m.Version == "" {
		m.Version = DefaultVersion
	}
	if m.Software.Active == nil {
		active := true
		m.Software.Active = &active
	}
}

// IsActive reports whether the plugin should be registered as runnable.
func (s *SoftwareSpec) IsActive() bool {
	if s.Active == nil {
		return true
	}
	return *s.Active
}
