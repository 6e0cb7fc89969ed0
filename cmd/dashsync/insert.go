package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/persistorai/dashsync/client"
	"github.com/persistorai/dashsync/internal/models"
)

func newInsertCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "insert <file>",
		Short: "Insert records from a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readRecords(args[0])
			if err != nil {
				return err
			}

			if err := models.ValidateBatch(records); err != nil {
				return fmt.Errorf("invalid records: %w", err)
			}

			if dryRun {
				return output(cmd.OutOrStdout(), map[string]int{"valid": len(records)}, fmt.Sprint(len(records)))
			}

			resp, err := client.New(apiURL()).Data.Insert(cmd.Context(), records)
			if err != nil {
				return fmt.Errorf("inserting records: %w", err)
			}

			return output(cmd.OutOrStdout(), resp, resp.Message)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the file without sending it")

	return cmd
}

// readRecords loads a record list. Files ending in .yaml or .yml are parsed
// as YAML; anything else as JSON.
func readRecords(path string) ([]models.Record, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	var records []models.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing %s: expected a list of records: %w", path, err)
	}

	return records, nil
}

// yamlToJSON re-encodes a YAML document as JSON so records decode through
// the same tolerant metric parsing as backend responses.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("yaml to json: %w", err)
	}

	return out, nil
}
