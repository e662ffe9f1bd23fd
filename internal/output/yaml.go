package output

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAMLRoundsWriter writes rounds reports as YAML.
type YAMLRoundsWriter struct{}

// Write outputs the rounds report as YAML.
func (w *YAMLRoundsWriter) Write(report *RoundsReport, options OutputOptions) error {
	return writeYAML(buildRoundsReport(report, options), options.OutputPath)
}

// YAMLClonesWriter writes clone listings as YAML.
type YAMLClonesWriter struct{}

// Write outputs the clone listing as YAML.
func (w *YAMLClonesWriter) Write(report *ClonesReport, options OutputOptions) error {
	return writeYAML(buildClonesReport(report), options.OutputPath)
}

func writeYAML(data interface{}, outputPath string) error {
	out, file, err := openOutputWriter(outputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	encoder := yaml.NewEncoder(out)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}
