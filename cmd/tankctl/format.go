package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"multifluid/fluid"
	"multifluid/ledger"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var snapshotCodec = fluid.Codec{}

func encodeRecord(w io.Writer, record ledger.Record, format string) error {
	switch strings.ToLower(format) {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	case formatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any(record)); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func decodeRecord(r io.Reader, format string) (ledger.Record, error) {
	var record ledger.Record
	switch strings.ToLower(format) {
	case formatJSON:
		dec := json.NewDecoder(r)
		dec.UseNumber()
		if err := dec.Decode(&record); err != nil {
			return nil, fmt.Errorf("decode json snapshot: %w", err)
		}
	case formatYAML, "yml":
		var raw map[string]any
		if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode yaml snapshot: %w", err)
		}
		record = ledger.Record(raw)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if record == nil {
		return nil, fmt.Errorf("snapshot is empty")
	}
	return record, nil
}
