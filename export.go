package ggbench

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	switch c {
	case CategoryCPU:
		return []byte("cpu"), nil
	case CategoryMemory:
		return []byte("memory"), nil
	case CategoryGPU:
		return []byte("gpu"), nil
	default:
		return nil, fmt.Errorf("ggbench: unknown category %d", int(c))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	for _, v := range Categories {
		if b, _ := v.MarshalText(); string(b) == string(text) {
			*c = v
			return nil
		}
	}
	return fmt.Errorf("ggbench: unknown category %q", text)
}

var statusNames = map[Status]string{
	StatusPending:     "pending",
	StatusOK:          "ok",
	StatusUnavailable: "unavailable",
	StatusError:       "error",
	StatusSkipped:     "skipped",
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("ggbench: unknown status %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for v, name := range statusNames {
		if name == string(text) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("ggbench: unknown status %q", text)
}

// reportDocument is the YAML form of a report.
type reportDocument struct {
	Version string         `yaml:"version"`
	Results []resultRecord `yaml:"results"`
}

type resultRecord struct {
	Category Category      `yaml:"category"`
	Status   Status        `yaml:"status"`
	Score    int           `yaml:"score"`
	Size     int           `yaml:"size,omitempty"`
	Duration time.Duration `yaml:"duration,omitempty"`
	FPS      float64       `yaml:"fps,omitempty"`
	Device   string        `yaml:"device,omitempty"`
	Error    string        `yaml:"error,omitempty"`
}

// WriteYAML writes the report as a YAML document, for example to keep a
// baseline to compare later runs against.
func (r Report) WriteYAML(w io.Writer) error {
	doc := reportDocument{Version: Version}
	for _, res := range r.Results() {
		rec := resultRecord{
			Category: res.Category,
			Status:   res.Status,
			Score:    res.Score,
			Size:     res.Size,
			Duration: res.Duration,
			FPS:      res.FPS,
			Device:   res.Device,
		}
		if res.Err != nil {
			rec.Error = res.Err.Error()
		}
		doc.Results = append(doc.Results, rec)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// ReadYAML reads a report written by WriteYAML. Errors come back as plain
// messages; they no longer match the sentinel errors with errors.Is.
func ReadYAML(r io.Reader) (Report, error) {
	var doc reportDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return Report{}, fmt.Errorf("ggbench: read report: %w", err)
	}

	rep := newReport()
	for _, rec := range doc.Results {
		res := Result{
			Category: rec.Category,
			Status:   rec.Status,
			Score:    rec.Score,
			Size:     rec.Size,
			Duration: rec.Duration,
			FPS:      rec.FPS,
			Device:   rec.Device,
		}
		if rec.Error != "" {
			res.Err = errors.New(rec.Error)
		}
		rep.set(res)
	}
	return rep, nil
}
