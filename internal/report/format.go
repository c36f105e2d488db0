package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/temirov/distaudit/internal/audit"
)

const (
	jsonIndentConstant                  = "  "
	yamlIndentConstant                  = 2
	unsupportedFormatTemplateConstant   = "unsupported report format %q"
	renderDocumentErrorTemplateConstant = "render %s report: %w"
)

// Format selects the report encoding.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formats lists the supported formats in display order.
func Formats() []string {
	return []string{string(FormatText), string(FormatJSON), string(FormatYAML)}
}

// Document is the complete report of one run.
type Document struct {
	Package    string         `json:"package" yaml:"package"`
	Repository string         `json:"repository" yaml:"repository"`
	Results    []audit.Result `json:"results" yaml:"results"`
}

// Render writes document in format. Text output uses textRenderer.
func Render(writer io.Writer, format Format, document Document, textRenderer TextRenderer) error {
	var renderError error
	switch format {
	case FormatText:
		renderError = textRenderer.Render(writer, document)
	case FormatJSON:
		renderError = RenderJSON(writer, document)
	case FormatYAML:
		renderError = RenderYAML(writer, document)
	default:
		return fmt.Errorf(unsupportedFormatTemplateConstant, format)
	}
	if renderError != nil {
		return fmt.Errorf(renderDocumentErrorTemplateConstant, format, renderError)
	}
	return nil
}

// RenderJSON writes document as indented JSON.
func RenderJSON(writer io.Writer, document Document) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", jsonIndentConstant)
	return encoder.Encode(normalizeDocument(document))
}

// RenderYAML writes document as YAML.
func RenderYAML(writer io.Writer, document Document) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(yamlIndentConstant)
	if encodeError := encoder.Encode(normalizeDocument(document)); encodeError != nil {
		return encodeError
	}
	return encoder.Close()
}

func normalizeDocument(document Document) Document {
	if document.Results == nil {
		document.Results = []audit.Result{}
	}
	return document
}
