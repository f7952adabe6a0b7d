package service

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/tsrefs/domain"
)

// OutputFormatterImpl implements the OutputFormatter interface
type OutputFormatterImpl struct{}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter() *OutputFormatterImpl {
	return &OutputFormatterImpl{}
}

// WriteJSON writes data as JSON to the writer
func WriteJSON(writer io.Writer, data interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// WriteYAML writes data as YAML to the writer
func WriteYAML(writer io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

// Write writes the add-references response in the specified format
func (f *OutputFormatterImpl) Write(response *domain.AddReferencesResponse, format domain.OutputFormat, writer io.Writer) error {
	if response == nil {
		return domain.NewOutputError("no response to write", nil)
	}

	var err error
	switch format {
	case domain.OutputFormatText, "":
		err = f.writeText(response, writer)
	case domain.OutputFormatJSON:
		err = WriteJSON(writer, response)
	case domain.OutputFormatYAML:
		err = WriteYAML(writer, response)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
	if err != nil {
		return domain.NewOutputError("failed to write output", err)
	}
	return nil
}

// writeText lists the added references, then the updated files
func (f *OutputFormatterImpl) writeText(response *domain.AddReferencesResponse, writer io.Writer) error {
	for _, added := range response.Added {
		if _, err := fmt.Fprintf(writer, "Added %s %s\n", added.Kind, added.FilePath); err != nil {
			return err
		}
	}

	if len(response.Updated) == 0 {
		_, err := fmt.Fprintln(writer, "No files were updated")
		return err
	}
	for _, file := range response.Updated {
		if _, err := fmt.Fprintf(writer, "Updated %s\n", file); err != nil {
			return err
		}
	}
	return nil
}
