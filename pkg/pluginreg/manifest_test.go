package pluginreg

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validManifestYAML returns a minimal valid plugin manifest in YAML format.
func validManifestYAML() string {
	return `version: "1.0"
software:
  name: deblur
  version: "2021.09"
commands:
  - name: Deblur 16S
    parameters:
      - name: reference
        type: choice
        default: greengenes
`
}

// validManifestJSON returns a minimal valid plugin manifest in JSON format.
func validManifestJSON() string {
	return `{
  "version": "1.0",
  "software": {
    "name": "deblur",
    "version": "2021.09"
  },
  "commands": [
    {"name": "Deblur 16S"}
  ]
}`
}

// fullManifestYAML returns a complete manifest with all optional fields.
func fullManifestYAML() string {
	return `version: "1.0"
software:
  name: target-gene
  version: "1.0.0"
  description: Amplicon analysis pipeline
  active: false
commands:
  - name: Split libraries
    description: Demultiplex and quality filter reads
    parameters:
      - name: barcode_type
        type: string
        default: golay_12
      - name: max_barcode_errors
        type: float
        default: 1.5
  - name: Pick closed-reference OTUs
    parameters:
      - name: reference
        type: reference
        required: true
      - name: similarity
        type: float
        default: 0.97
    merging_scheme:
      parameter: reference
`
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		filename    string
		wantErr     bool
		errContains string
		validate    func(t *testing.T, m *Manifest)
	}{
		{
			name:     "valid YAML manifest",
			content:  validManifestYAML(),
			filename: "plugin.yaml",
			validate: func(t *testing.T, m *Manifest) {
				assert.Equal(t, "1.0", m.Version)
				assert.Equal(t, "deblur", m.Software.Name)
				assert.Equal(t, "2021.09", m.Software.Version)
				require.Len(t, m.Commands, 1)
				assert.Equal(t, "Deblur 16S", m.Commands[0].Name)
				require.Len(t, m.Commands[0].Parameters, 1)
				assert.Equal(t, "greengenes", m.Commands[0].Parameters[0].Default)
				// Active defaults to true
				assert.True(t, m.Software.IsActive())
			},
		},
		{
			name:     "valid JSON manifest",
			content:  validManifestJSON(),
			filename: "plugin.json",
			validate: func(t *testing.T, m *Manifest) {
				assert.Equal(t, "deblur", m.Software.Name)
				require.Len(t, m.Commands, 1)
			},
		},
		{
			name:     "full manifest with all options",
			content:  fullManifestYAML(),
			filename: "plugin.yaml",
			validate: func(t *testing.T, m *Manifest) {
				assert.Equal(t, "target-gene", m.Software.Name)
				assert.Equal(t, "Amplicon analysis pipeline", m.Software.Description)
				assert.False(t, m.Software.IsActive())
				require.Len(t, m.Commands, 2)

				split := m.Commands[0]
				assert.Equal(t, "Split libraries", split.Name)
				require.Len(t, split.Parameters, 2)
				assert.Equal(t, "float", split.Parameters[1].Type)
				assert.Nil(t, split.MergingScheme)

				pick := m.Commands[1]
				require.NotNil(t, pick.MergingScheme)
				assert.Equal(t, "reference", pick.MergingScheme.Parameter)
				assert.True(t, pick.Parameters[0].Required)
			},
		},
		{
			name: "version defaults when omitted",
			content: `software:
  name: deblur
  version: "2021.09"
commands:
  - name: Deblur 16S
`,
			filename: "plugin.yaml",
			validate: func(t *testing.T, m *Manifest) {
				assert.Equal(t, DefaultVersion, m.Version)
			},
		},
		{
			name: "unknown extension falls back to YAML",
			content: `software:
  name: deblur
  version: "2021.09"
commands:
  - name: Deblur 16S
`,
			filename: "plugin.manifest",
			validate: func(t *testing.T, m *Manifest) {
				assert.Equal(t, "deblur", m.Software.Name)
			},
		},
		{
			name:        "unsupported version",
			content:     strings.Replace(validManifestYAML(), `version: "1.0"`, `version: "2.0"`, 1),
			filename:    "plugin.yaml",
			wantErr:     true,
			errContains: "unsupported manifest version",
		},
		{
			name: "missing software name",
			content: `version: "1.0"
software:
  version: "2021.09"
commands:
  - name: Deblur 16S
`,
			filename:    "plugin.yaml",
			wantErr:     true,
			errContains: "software name is required",
		},
		{
			name: "no commands",
			content: `version: "1.0"
software:
  name: deblur
  version: "2021.09"
commands: []
`,
			filename:    "plugin.yaml",
			wantErr:     true,
			errContains: "at least one command is required",
		},
		{
			name: "unknown parameter type",
			content: `version: "1.0"
software:
  name: deblur
  version: "2021.09"
commands:
  - name: Deblur 16S
    parameters:
      - name: reference
        type: dropdown
`,
			filename:    "plugin.yaml",
			wantErr:     true,
			errContains: `unknown parameter type "dropdown"`,
		},
		{
			name:        "invalid YAML",
			content:     "software: [unbalanced",
			filename:    "plugin.yaml",
			wantErr:     true,
			errContains: "invalid YAML",
		},
		{
			name:        "invalid JSON",
			content:     "{not json",
			filename:    "plugin.json",
			wantErr:     true,
			errContains: "invalid JSON",
		},
		{
			name:        "empty file",
			content:     "",
			filename:    "plugin.yaml",
			wantErr:     true,
			errContains: "manifest is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.filename)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			m, err := Load(path)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			tt.validate(t, m)
		})
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plugin manifest not found")
}

func TestLoadFromReader(t *testing.T) {
	m, err := LoadFromReader(strings.NewReader(validManifestYAML()), "plugin.yaml")
	require.NoError(t, err)
	assert.Equal(t, "deblur", m.Software.Name)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	m := &Manifest{
		Version: "1.0",
		Commands: []CommandSpec{
			{Name: "a", Parameters: []ParameterSpec{{Name: "p", Type: "string"}}},
			{Name: "a"},
		},
	}

	err := Validate(m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidationFailed))

	var errs ValidationErrors
	require.True(t, errors.As(err, &errs))

	paths := make([]string, 0, len(errs))
	for _, e := range errs {
		paths = append(paths, e.Path)
	}
	assert.Contains(t, paths, "/software/name")
	assert.Contains(t, paths, "/software/version")
	assert.Contains(t, paths, "/commands/1/name")
}

func TestValidateMergingSchemeParameter(t *testing.T) {
	m := &Manifest{
		Version:  "1.0",
		Software: SoftwareSpec{Name: "deblur", Version: "2021.09"},
		Commands: []CommandSpec{
			{
				Name:          "Deblur 16S",
				Parameters:    []ParameterSpec{{Name: "trim-length", Type: "integer"}},
				MergingScheme: &MergingSchemeSpec{Parameter: "reference"},
			},
		},
	}

	err := Validate(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `undeclared parameter "reference"`)

	// Declaring the parameter fixes it.
	m.Commands[0].Parameters = append(m.Commands[0].Parameters,
		ParameterSpec{Name: "reference", Type: "choice"})
	assert.NoError(t, Validate(m))
}

func TestValidationErrorFormatting(t *testing.T) {
	single := ValidationErrors{{Path: "/software/name", Message: "software name is required"}}
	assert.Equal(t, "/software/name: software name is required", single.Error())

	multi := ValidationErrors{
		{Path: "/software/name", Message: "software name is required"},
		{Message: "at least one command is required"},
	}
	msg := multi.Error()
	assert.Contains(t, msg, "2 errors")
	assert.Contains(t, msg, "/software/name")
	assert.Contains(t, msg, "at least one command is required")
}
