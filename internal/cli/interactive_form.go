package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"

	"audio-batch-converter/internal/discovery"
)

type interactiveFieldKind int

const (
	interactiveFieldString interactiveFieldKind = iota
	interactiveFieldInt
	interactiveFieldBool
	interactiveFieldSelect
)

type interactiveFormField struct {
	Key      string
	Label    string
	Help     string
	Kind     interactiveFieldKind
	Value    string
	Options  []string
	Required bool
}

type interactiveForm struct {
	Title  string
	Fields []interactiveFormField
	Index  int
	Input  textinput.Model
	Error  string
	Busy   bool
}

// interactiveRunPlan is one validated form submission: the paths to expand
// plus the fully resolved run configuration.
type interactiveRunPlan struct {
	Paths     []string
	Recursive bool
	Probe     bool
	Cfg       discovery.RunConfig
}

func newInteractiveForm(settings discovery.Settings, seedPaths []string, width int) *interactiveForm {
	f := &interactiveForm{Title: "Conversion Setup"}
	f.Fields = []interactiveFormField{
		{Key: "inputs", Label: "Input Files", Help: "Comma-separated files or directories", Kind: interactiveFieldString, Value: strings.Join(seedPaths, ", ")},
		{Key: "out", Label: "Output Folder", Help: "Converted files are written here", Kind: interactiveFieldString, Value: settings.OutputDir},
		{Key: "format", Label: "Output Format", Kind: interactiveFieldSelect, Value: settings.Format, Options: discovery.SupportedFormats},
		{Key: "bitrate", Label: "Bitrate", Kind: interactiveFieldSelect, Value: settings.Bitrate, Options: discovery.SupportedBitrates},
		{Key: "overwrite", Label: "Overwrite Existing", Help: "Replace outputs that already exist instead of skipping", Kind: interactiveFieldBool, Value: boolToYN(settings.Overwrite)},
		{Key: "workers", Label: "Workers", Help: "Concurrent conversions; 0 sizes to the machine", Kind: interactiveFieldInt, Value: strconv.Itoa(settings.Workers)},
		{Key: "recursive", Label: "Recurse Directories", Help: "Scan directory inputs recursively", Kind: interactiveFieldBool, Value: "n"},
		{Key: "validate", Label: "Validate Inputs", Help: "Probe each file for an audio stream first", Kind: interactiveFieldBool, Value: "y"},
	}

	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 1024
	input.Width = clampInt(width-8, 20, 120)
	f.Input = input
	f.loadFieldIntoInput()
	f.Input.Focus()
	return f
}

func resizeFormInput(f *interactiveForm, width int) *interactiveForm {
	if f == nil {
		return nil
	}
	f.Input.Width = clampInt(width-8, 20, 120)
	return f
}

func (f *interactiveForm) currentField() interactiveFormField {
	if len(f.Fields) == 0 {
		return interactiveFormField{}
	}
	if f.Index < 0 {
		f.Index = 0
	}
	if f.Index >= len(f.Fields) {
		f.Index = len(f.Fields) - 1
	}
	return f.Fields[f.Index]
}

func (f *interactiveForm) commitInput() {
	if f == nil || len(f.Fields) == 0 {
		return
	}
	f.Fields[f.Index].Value = strings.TrimSpace(f.Input.Value())
}

func (f *interactiveForm) loadFieldIntoInput() {
	if f == nil || len(f.Fields) == 0 {
		return
	}
	f.Input.SetValue(f.Fields[f.Index].Value)
	f.Input.CursorEnd()
}

func (f *interactiveForm) toggleBoolField() {
	if f == nil || len(f.Fields) == 0 {
		return
	}
	curr := f.Fields[f.Index]
	if curr.Kind != interactiveFieldBool {
		return
	}
	v, ok := parseBool(curr.Value)
	if !ok {
		v = false
	}
	curr.Value = boolToYN(!v)
	f.Fields[f.Index] = curr
	f.loadFieldIntoInput()
}

func (f *interactiveForm) setBoolField(v bool) {
	if f == nil || len(f.Fields) == 0 {
		return
	}
	curr := f.Fields[f.Index]
	if curr.Kind != interactiveFieldBool {
		return
	}
	curr.Value = boolToYN(v)
	f.Fields[f.Index] = curr
	f.loadFieldIntoInput()
}

func (f *interactiveForm) nextSelectOption() {
	f.shiftSelectOption(1)
}

func (f *interactiveForm) prevSelectOption() {
	f.shiftSelectOption(-1)
}

func (f *interactiveForm) shiftSelectOption(delta int) {
	if f == nil || len(f.Fields) == 0 {
		return
	}
	curr := f.Fields[f.Index]
	if curr.Kind != interactiveFieldSelect || len(curr.Options) == 0 {
		return
	}
	current := strings.TrimSpace(curr.Value)
	pos := 0
	for i, opt := range curr.Options {
		if strings.EqualFold(opt, current) {
			pos = i
			break
		}
	}
	pos = (pos + delta + len(curr.Options)) % len(curr.Options)
	curr.Value = curr.Options[pos]
	f.Fields[f.Index] = curr
	f.loadFieldIntoInput()
}

func (f *interactiveForm) toRunPlan(settings discovery.Settings) (interactiveRunPlan, error) {
	if f == nil {
		return interactiveRunPlan{}, errors.New("internal form error")
	}
	vals := make(map[string]string, len(f.Fields))
	for _, field := range f.Fields {
		v := strings.TrimSpace(field.Value)
		if field.Required && v == "" {
			return interactiveRunPlan{}, fmt.Errorf("%s is required", strings.ToLower(field.Label))
		}
		switch field.Kind {
		case interactiveFieldInt:
			if v == "" {
				v = "0"
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return interactiveRunPlan{}, fmt.Errorf("%s must be an integer >= 0", strings.ToLower(field.Label))
			}
		case interactiveFieldBool:
			if _, ok := parseBool(v); !ok {
				return interactiveRunPlan{}, fmt.Errorf("%s must be y or n", strings.ToLower(field.Label))
			}
		case interactiveFieldSelect:
			matched := false
			for _, opt := range field.Options {
				if strings.EqualFold(opt, v) {
					v = opt
					matched = true
					break
				}
			}
			if !matched {
				return interactiveRunPlan{}, fmt.Errorf("%s has invalid value", strings.ToLower(field.Label))
			}
		}
		vals[field.Key] = v
	}

	paths := splitInputList(vals["inputs"])
	if len(paths) == 0 {
		return interactiveRunPlan{}, errors.New("input files are required")
	}
	workers, _ := strconv.Atoi(defaultIfEmpty(vals["workers"], "0"))
	overwrite, _ := parseBool(vals["overwrite"])
	cfg, err := discovery.ResolveRunConfig(settings, vals["out"], vals["format"], vals["bitrate"], 0, &overwrite)
	if err != nil {
		return interactiveRunPlan{}, err
	}
	// The form shows the effective worker count, so its value always wins,
	// including an explicit zero for machine-sized.
	cfg.Workers = workers
	recursive, _ := parseBool(vals["recursive"])
	probe, _ := parseBool(defaultIfEmpty(vals["validate"], "y"))

	return interactiveRunPlan{
		Paths:     paths,
		Recursive: recursive,
		Probe:     probe,
		Cfg:       cfg,
	}, nil
}
