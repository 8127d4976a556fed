package settings

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Param is one row of a legacy settings table.
type Param struct {
	Name  string
	Value string
}

// Document is a JSON configuration document keyed by parameter name.
type Document map[string]any

// TranscodeError reports a known parameter whose raw value could not be
// converted. The parameter is left out of the document.
type TranscodeError struct {
	Scope Scope
	Name  string
	Value string
	Kind  Kind
	Err   error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode %s parameter %q=%q as %s: %v", e.Scope, e.Name, e.Value, e.Kind, e.Err)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// Transcode converts params into a typed document. Unknown names are skipped
// without a diagnostic; known names with unparsable values are skipped and
// returned as *TranscodeError values.
func (s *Schema) Transcode(params []Param) (Document, []error) {
	doc := make(Document)
	var dropped []error

	for _, p := range params {
		key, kind, field, ok := s.resolve(p.Name)
		if !ok {
			continue
		}
		v, err := convert(kind, field.Values, p.Value)
		if err != nil {
			dropped = append(dropped, &TranscodeError{
				Scope: s.scope,
				Name:  p.Name,
				Value: p.Value,
				Kind:  kind,
				Err:   err,
			})
			continue
		}
		doc[key] = v
	}
	return doc, dropped
}

func (s *Schema) resolve(name string) (string, Kind, Field, bool) {
	if r, ok := s.renames[name]; ok {
		return r.Target, r.Kind, Field{Kind: r.Kind}, true
	}
	if f, ok := s.fields[name]; ok {
		return name, f.Kind, f, true
	}
	return "", 0, Field{}, false
}

func convert(kind Kind, values map[string]string, raw string) (any, error) {
	v := strings.TrimSpace(raw)
	switch kind {
	case KindInt:
		return strconv.ParseInt(v, 10, 64)
	case KindDouble:
		return strconv.ParseFloat(v, 64)
	case KindString:
		return raw, nil
	case KindDuration:
		return Milliseconds(v)
	case KindBool:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, err
		}
		return n == 1, nil
	case KindEnum:
		mapped, ok := values[v]
		if !ok {
			return nil, fmt.Errorf("unknown code %q", v)
		}
		return mapped, nil
	default:
		return nil, fmt.Errorf("unsupported kind %d", kind)
	}
}

// Milliseconds re-encodes a duration given in (possibly fractional) seconds
// as an integer-millisecond string, e.g. "2.5" -> "2500ms".
func Milliseconds(seconds string) (string, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(seconds), 64)
	if err != nil {
		return "", err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("duration %q is not finite", seconds)
	}
	return strconv.FormatInt(int64(math.Round(f*1000)), 10) + "ms", nil
}

// WorkAreaKey is the per-stream document key carrying the detection region.
const WorkAreaKey = "workArea"

// WorkArea is the detection region of a stream in frame pixels.
type WorkArea struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Defined reports whether the region is non-empty.
func (w WorkArea) Defined() bool {
	return w.Width > 0 && w.Height > 0
}

// StreamDocument builds the document stored with an individual stream.
func StreamDocument(params []Param, area WorkArea) (Document, []error) {
	doc, dropped := Stream.Transcode(params)
	if area.Defined() {
		doc[WorkAreaKey] = []int{area.X, area.Y, area.Width, area.Height}
	}
	return doc, dropped
}
