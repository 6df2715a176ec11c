package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the supported output formats for CLI commands.
type OutputFormat string

const (
	// OutputFormatTable formats output as a table
	OutputFormatTable OutputFormat = "table"
	// OutputFormatJSON formats output as indented JSON
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML formats output as YAML
	OutputFormatYAML OutputFormat = "yaml"
)

// ValidOutputFormats contains all valid output format values.
var ValidOutputFormats = []OutputFormat{
	OutputFormatTable,
	OutputFormatJSON,
	OutputFormatYAML,
}

// ValidateOutputFormat validates that the given format string is a supported output format.
func ValidateOutputFormat(format string) error {
	switch OutputFormat(format) {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %q (valid: table, json, yaml)", format)
	}
}

// Options controls how a command renders its result.
type Options struct {
	Format    OutputFormat
	NoHeaders bool
	Quiet     bool
}

// Printer renders command results to a writer.
type Printer struct {
	out     io.Writer
	options Options
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer, options Options) *Printer {
	if options.Format == "" {
		options.Format = OutputFormatTable
	}
	return &Printer{out: out, options: options}
}

// Options returns the printer's options.
func (p *Printer) Options() Options {
	return p.options
}

// Structured reports whether output is JSON or YAML.
func (p *Printer) Structured() bool {
	return p.options.Format != OutputFormatTable
}

// PrintData writes v as JSON or YAML. It must not be used for table output.
func (p *Printer) PrintData(v interface{}) error {
	switch p.options.Format {
	case OutputFormatJSON:
		encoder := json.NewEncoder(p.out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case OutputFormatYAML:
		// Round-trip through JSON so the json tags define the field names.
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic interface{}
		if err := json.Unmarshal(data, &generic); err != nil {
			return err
		}
		encoder := yaml.NewEncoder(p.out)
		encoder.SetIndent(2)
		if err := encoder.Encode(generic); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("format %s is not a data format", p.options.Format)
	}
}

// Printf writes a line of free text unless quiet mode is set.
func (p *Printer) Printf(format string, args ...interface{}) {
	if p.options.Quiet {
		return
	}
	fmt.Fprintf(p.out, format, args...)
}

// newTable creates a table with standard styling.
func (p *Printer) newTable(headers ...string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(table.StyleRounded)
	if !p.options.NoHeaders {
		row := make(table.Row, len(headers))
		for i, h := range headers {
			row[i] = text.FgHiCyan.Sprint(h)
		}
		t.AppendHeader(row)
	}
	return t
}

// formatEmptyMessage formats empty result messages
func formatEmptyMessage(icon, message string) string {
	return fmt.Sprintf("%s %s\n", text.FgYellow.Sprint(icon), text.FgYellow.Sprint(message))
}
