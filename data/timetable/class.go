package timetable

import (
	"sort"
	"strings"
)

const (
	OptionCampus    = "campus"
	OptionClassType = "classType"

	DefaultCampus    = "APU"
	DefaultClassType = "Class"
)

// optional class attributes and what they resolve to when absent
var classOptionDefaults = map[string]string{
	OptionCampus:    DefaultCampus,
	OptionClassType: DefaultClassType,
}

// ClassFields is an unvalidated class, nil means the field was not given
type ClassFields struct {
	ModuleCode    *string `json:"moduleCode"`
	ModuleName    *string `json:"moduleName"`
	Time          *string `json:"time"`
	Location      *string `json:"location"`
	Lecturer      *string `json:"lecturer"`
	IsOnline      *bool   `json:"isOnline"`
	IsReplacement *bool   `json:"isReplacement"`

	// overrides for campus and classType
	Options map[string]string `json:"-"`
}

// WithOption sets one of the optional attributes, an empty value is ignored
func (f ClassFields) WithOption(key, value string) ClassFields {
	if strings.TrimSpace(value) == "" {
		return f
	}
	options := make(map[string]string, len(f.Options)+1)
	for k, v := range f.Options {
		options[k] = v
	}
	options[key] = value
	f.Options = options
	return f
}

// NewClass validates every required field and resolves defaults, this is the
// only place defaults get applied
func NewClass(f ClassFields) (Class, error) {
	validationErr := &ValidationError{}
	required := []struct {
		name  string
		value *string
	}{
		{"moduleCode", f.ModuleCode},
		{"moduleName", f.ModuleName},
		{"time", f.Time},
		{"location", f.Location},
		{"lecturer", f.Lecturer},
	}
	for _, field := range required {
		if field.value == nil || strings.TrimSpace(*field.value) == "" {
			validationErr.Missing = append(validationErr.Missing, field.name)
		}
	}
	if f.IsOnline == nil {
		validationErr.Missing = append(validationErr.Missing, "isOnline")
	}
	for key := range f.Options {
		if _, ok := classOptionDefaults[key]; !ok {
			validationErr.Unknown = append(validationErr.Unknown, key)
		}
	}
	sort.Strings(validationErr.Unknown)

	if len(validationErr.Missing) > 0 || len(validationErr.Unknown) > 0 {
		return Class{}, validationErr
	}

	c := Class{
		ModuleCode: strings.TrimSpace(*f.ModuleCode),
		ModuleName: strings.TrimSpace(*f.ModuleName),
		Time:       strings.TrimSpace(*f.Time),
		Location:   strings.TrimSpace(*f.Location),
		Lecturer:   strings.TrimSpace(*f.Lecturer),
		IsOnline:   *f.IsOnline,
		Campus:     resolveOption(f.Options, OptionCampus),
		ClassType:  resolveOption(f.Options, OptionClassType),
	}
	if f.IsReplacement != nil {
		c.IsReplacement = *f.IsReplacement
	}
	return c, nil
}

func resolveOption(options map[string]string, key string) string {
	if v, ok := options[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return classOptionDefaults[key]
}
