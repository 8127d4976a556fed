// Package settings converts the flat name/value parameter tables of the legacy
// store into the typed JSON configuration documents used by the serving system.
package settings

// Scope selects which destination document a schema produces.
type Scope int

const (
	// ScopeCommon is the tenant-wide document (common_config).
	ScopeCommon Scope = iota + 1
	// ScopeStream is the per-stream document, also used as the tenant's
	// default stream document (default_vstream_config).
	ScopeStream
)

func (s Scope) String() string {
	switch s {
	case ScopeCommon:
		return "common"
	case ScopeStream:
		return "stream"
	default:
		return "unknown"
	}
}

// Kind is the typed representation a raw parameter value is converted to.
type Kind int

const (
	KindInt Kind = iota + 1
	KindDouble
	KindString
	// KindDuration values are seconds in the source and "<n>ms" strings in the destination.
	KindDuration
	// KindBool values are "1" / "0" in the source.
	KindBool
	// KindEnum values are looked up in Field.Values.
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindDuration:
		return "duration"
	case KindBool:
		return "bool"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Field describes one known parameter.
type Field struct {
	Kind   Kind
	Values map[string]string
}

// Rename moves a source parameter to a different destination key, applying Kind.
type Rename struct {
	Target string
	Kind   Kind
}

// Schema is the authority on which parameters a scope accepts.
type Schema struct {
	scope   Scope
	fields  map[string]Field
	renames map[string]Rename
}

func newSchema(scope Scope) *Schema {
	return &Schema{
		scope:   scope,
		fields:  make(map[string]Field),
		renames: make(map[string]Rename),
	}
}

func (s *Schema) with(kind Kind, names ...string) *Schema {
	for _, n := range names {
		s.fields[n] = Field{Kind: kind}
	}
	return s
}

func (s *Schema) withEnum(name string, values map[string]string) *Schema {
	s.fields[name] = Field{Kind: KindEnum, Values: values}
	return s
}

func (s *Schema) withRename(from string, r Rename) *Schema {
	s.renames[from] = r
	return s
}

// Scope returns the document scope the schema produces.
func (s *Schema) Scope() Scope { return s.scope }

// Lookup returns the field declared for name, if any.
func (s *Schema) Lookup(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// LogLevels maps the legacy numeric log level codes to level names.
var LogLevels = map[string]string{
	"0": "error",
	"1": "info",
	"2": "trace",
}

// Common is the schema of the tenant-wide document.
var Common = newSchema(ScopeCommon).
	with(KindInt,
		"dnn-fc-input-height",
		"dnn-fc-input-width",
		"dnn-fc-output-size",
		"dnn-fd-input-width",
		"dnn-fd-input-height",
		"dnn-fr-input-width",
		"dnn-fr-input-height",
		"dnn-fr-output-size",
		"sg-max-descriptor-count",
	).
	with(KindString,
		"comments-blurry-face",
		"comments-descriptor-creation-error",
		"comments-descriptor-exists",
		"comments-inference-error",
		"comments-new-descriptor",
		"comments-no-faces",
		"comments-non-frontal-face",
		"comments-non-normal-face-class",
		"comments-partial-face",
		"comments-url-image-error",
		"dnn-fc-input-tensor-name",
		"dnn-fc-model-name",
		"dnn-fc-output-tensor-name",
		"dnn-fd-input-tensor-name",
		"dnn-fd-model-name",
		"dnn-fr-input-tensor-name",
		"dnn-fr-model-name",
		"dnn-fr-output-tensor-name",
	).
	with(KindDuration, "callback-timeout").
	with(KindBool, "flag-copy-event-data")

// Stream is the schema of per-stream documents and of the tenant's default
// stream document.
var Stream = newSchema(ScopeStream).
	with(KindInt, "max-capture-error-count").
	with(KindDouble,
		"blur",
		"blur-max",
		"face-class-confidence",
		"face-confidence",
		"face-enlarge-scale",
		"margin",
		"title-height-ratio",
		"tolerance",
	).
	with(KindString,
		"dnn-fc-inference-server",
		"dnn-fd-inference-server",
		"dnn-fr-inference-server",
		"osd-datetime-format",
	).
	with(KindDuration,
		"best-quality-interval-after",
		"best-quality-interval-before",
		"capture-timeout",
		"delay-between-frames",
		"open-door-duration",
	).
	withEnum("logs-level", LogLevels).
	withRename("retry-pause", Rename{Target: "delay-after-error", Kind: KindDuration})
