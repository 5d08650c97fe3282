// Package job defines the template jobs applied to a device and loads the
// variable files and job manifests that feed them.
package job

import (
	"fmt"
	"strings"
)

// Format tags rendered configuration with the syntax the device should
// parse it as.
type Format string

const (
	// FormatSet is a list of "set ..." line commands.
	FormatSet Format = "set"
	// FormatText is curly-brace structured configuration text.
	FormatText Format = "text"
	// FormatXML is a <configuration> element.
	FormatXML Format = "xml"
)

// ParseFormat converts a format name (case-insensitive) to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatSet, FormatText, FormatXML:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (valid: set, text, xml)", s)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *Format) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// TemplateJob is one unit of configuration: a template, the variables it is
// rendered with, and the format the result is loaded as.
type TemplateJob struct {
	Template  string `yaml:"template"`
	Variables string `yaml:"vars"`
	Format    Format `yaml:"format"`
}

func (j TemplateJob) String() string {
	return fmt.Sprintf("%s (%s, vars %s)", j.Template, j.Format, j.Variables)
}

// Built-in job sequence paths, relative to the working directory.
const (
	SetTemplate     = "template/basic.set.tmpl"
	SetVariables    = "data/basic_set_datavars.yml"
	ConfigTemplate  = "template/juniper.conf.tmpl"
	ConfigVariables = "data/juniper_conf_datavars.yml"
)

// DefaultJobs returns the built-in sequence: a set-format command list
// followed by a structured configuration document.
func DefaultJobs() []TemplateJob {
	return []TemplateJob{
		{Template: SetTemplate, Variables: SetVariables, Format: FormatSet},
		{Template: ConfigTemplate, Variables: ConfigVariables, Format: FormatText},
	}
}
