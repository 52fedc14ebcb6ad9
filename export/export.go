package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/goccy/go-json"
	"sigs.k8s.io/yaml"

	"github.com/keyhole-db/keyhole/store"
	"github.com/keyhole-db/keyhole/types"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

// Exporter writes records one at a time; Close flushes whatever the format
// buffers.
type Exporter interface {
	Write(record types.Record) error
	Close() error
}

// NewExporter builds an exporter for the format. columns fixes the CSV
// column order; the other formats ignore it.
func NewExporter(format Format, out io.Writer, columns []string) (Exporter, error) {
	switch format {
	case FormatJSON:
		return &jsonExporter{out: out}, nil
	case FormatCSV:
		if len(columns) == 0 {
			return nil, fmt.Errorf("csv export needs a column list")
		}
		return &csvExporter{writer: csv.NewWriter(out), columns: columns}, nil
	case FormatYAML:
		return &yamlExporter{out: out}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// Collection drains a materialized view through an exporter. Closing the
// exporter stays with the caller.
func Collection(ctx context.Context, collection *store.Collection, exporter Exporter) (int, error) {
	exported := 0
	err := collection.Each(ctx, func(row store.KeyedRecord) error {
		if err := exporter.Write(row.Record); err != nil {
			return err
		}
		exported++
		return nil
	})
	return exported, err
}

// ColumnsOf returns a stable column order for a discovered schema.
func ColumnsOf(schema *types.TableSchema) []string {
	columns := make([]string, 0, len(schema.Columns))
	for column := range schema.Columns {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

type jsonExporter struct {
	out   io.Writer
	wrote bool
}

func (e *jsonExporter) Write(record types.Record) error {
	prefix := "[\n"
	if e.wrote {
		prefix = ",\n"
	}
	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}
	if _, err := fmt.Fprintf(e.out, "%s%s", prefix, doc); err != nil {
		return err
	}
	e.wrote = true
	return nil
}

func (e *jsonExporter) Close() error {
	if !e.wrote {
		_, err := io.WriteString(e.out, "[]\n")
		return err
	}
	_, err := io.WriteString(e.out, "\n]\n")
	return err
}

type csvExporter struct {
	writer      *csv.Writer
	columns     []string
	wroteHeader bool
}

func (e *csvExporter) Write(record types.Record) error {
	if !e.wroteHeader {
		if err := e.writer.Write(e.columns); err != nil {
			return err
		}
		e.wroteHeader = true
	}

	row := make([]string, len(e.columns))
	for i, column := range e.columns {
		if _, present := record[column]; !present {
			continue
		}
		value, err := record.GetStringifiedJSONValue(column)
		if err != nil {
			return fmt.Errorf("failed to stringify %s: %w", column, err)
		}
		row[i] = value
	}
	return e.writer.Write(row)
}

func (e *csvExporter) Close() error {
	e.writer.Flush()
	return e.writer.Error()
}

type yamlExporter struct {
	out     io.Writer
	records []types.Record
}

func (e *yamlExporter) Write(record types.Record) error {
	e.records = append(e.records, record)
	return nil
}

func (e *yamlExporter) Close() error {
	doc, err := yaml.Marshal(e.records)
	if err != nil {
		return fmt.Errorf("failed to serialize records: %w", err)
	}
	_, err = e.out.Write(doc)
	return err
}
