// Package pvdb loads process variable databases from YAML.
//
// A database file lists records:
//
//	records:
//	  - name: TEMP
//	    type: double
//	    value: 21.5
//	    description: Room temperature
//	  - name: WAVE
//	    type: waveform
//	    count: 4
//	    value: [1, 2, 3]
//
// Types are the names accepted by pv.ParseType. A missing value starts the
// variable at its zero value; arrays are zero-padded to count.
package pvdb

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/softioc/softioc-go/pkg/pv"
)

// ErrInvalidRecord is returned for records that cannot be built.
var ErrInvalidRecord = errors.New("invalid record")

// Record is one database entry.
type Record struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Value       any    `yaml:"value"`
	Count       int    `yaml:"count"`
	Description string `yaml:"description"`
}

// Database is the file layout.
type Database struct {
	Records []Record `yaml:"records"`
}

// Load reads and builds the database at path.
func Load(path string, opts ...pv.Option) ([]pv.ProcessVariable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read database: %w", err)
	}
	vars, err := Parse(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vars, nil
}

// Parse builds the variables described by a YAML document. Unknown fields,
// unknown types and duplicate names are errors. opts are applied to every
// variable.
func Parse(data []byte, opts ...pv.Option) ([]pv.ProcessVariable, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var db Database
	if err := dec.Decode(&db); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}

	seen := make(map[string]int, len(db.Records))
	vars := make([]pv.ProcessVariable, 0, len(db.Records))
	for i, rec := range db.Records {
		if first, dup := seen[rec.Name]; dup {
			return nil, fmt.Errorf("%w: record %d: name %q already used by record %d",
				ErrInvalidRecord, i, rec.Name, first)
		}
		v, err := Build(rec, opts...)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		seen[rec.Name] = i
		vars = append(vars, v)
	}
	return vars, nil
}

// Build creates the variable for one record.
func Build(rec Record, opts ...pv.Option) (pv.ProcessVariable, error) {
	if rec.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrInvalidRecord)
	}
	typ, err := pv.ParseType(rec.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRecord, rec.Name, err)
	}
	if rec.Description != "" {
		opts = append(opts, pv.WithDescription(rec.Description))
	}

	switch typ {
	case pv.TypeString:
		return build[string](rec, pv.StringCodec{}, opts)
	case pv.TypeDouble:
		return build[float64](rec, pv.DoubleCodec{}, opts)
	case pv.TypeLong:
		return build[int32](rec, pv.LongCodec{}, opts)
	case pv.TypeDoubleArray:
		return buildArray(rec, opts)
	default:
		return nil, fmt.Errorf("%w: %s: unsupported type %s", ErrInvalidRecord, rec.Name, typ)
	}
}

func build[T any](rec Record, codec pv.Codec[T], opts []pv.Option) (pv.ProcessVariable, error) {
	if rec.Count > 1 {
		return nil, fmt.Errorf("%w: %s: count %d on a scalar type", ErrInvalidRecord, rec.Name, rec.Count)
	}
	var initial T
	if rec.Value != nil {
		v, err := codec.Decode(rec.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: value: %w", ErrInvalidRecord, rec.Name, err)
		}
		initial = v
	}
	return pv.New(rec.Name, codec, initial, opts...), nil
}

func buildArray(rec Record, opts []pv.Option) (pv.ProcessVariable, error) {
	var initial []float64
	if rec.Value != nil {
		v, err := pv.DoubleArrayCodec{}.Decode(rec.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: value: %w", ErrInvalidRecord, rec.Name, err)
		}
		initial = v
	}

	count := rec.Count
	switch {
	case count < 0:
		return nil, fmt.Errorf("%w: %s: negative count", ErrInvalidRecord, rec.Name)
	case count == 0:
		count = len(initial)
	case len(initial) > count:
		return nil, fmt.Errorf("%w: %s: %d values exceed count %d", ErrInvalidRecord, rec.Name, len(initial), count)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %s: array needs a count or a value", ErrInvalidRecord, rec.Name)
	}

	padded := make([]float64, count)
	copy(padded, initial)
	return pv.New(rec.Name, pv.DoubleArrayCodec{MaxCount: count}, padded, opts...), nil
}
