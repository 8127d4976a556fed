package settings

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMilliseconds(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"30.0", "30000ms"},
		{"2.5", "2500ms"},
		{"1", "1000ms"},
		{"0.1", "100ms"},
		{"2.3", "2300ms"},
		{" 5 ", "5000ms"},
		{"0", "0ms"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Milliseconds(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Milliseconds("soon")
	require.Error(t, err)
	_, err = Milliseconds("NaN")
	require.Error(t, err)
}

func TestTranscode_DurationKind(t *testing.T) {
	doc, dropped := Stream.Transcode([]Param{{Name: "capture-timeout", Value: "30.0"}})
	require.Empty(t, dropped)
	assert.Equal(t, Document{"capture-timeout": "30000ms"}, doc)
}

func TestTranscode_RetryPauseIsRenamed(t *testing.T) {
	doc, dropped := Stream.Transcode([]Param{{Name: "retry-pause", Value: "2.5"}})
	require.Empty(t, dropped)

	assert.Equal(t, "2500ms", doc["delay-after-error"])
	_, present := doc["retry-pause"]
	assert.False(t, present, "source name must not leak into the document")
}

func TestTranscode_RetryPauseIgnoredByCommonScope(t *testing.T) {
	doc, dropped := Common.Transcode([]Param{{Name: "retry-pause", Value: "2.5"}})
	require.Empty(t, dropped)
	assert.Empty(t, doc)
}

func TestTranscode_Kinds(t *testing.T) {
	doc, dropped := Stream.Transcode([]Param{
		{Name: "max-capture-error-count", Value: "3"},
		{Name: "face-confidence", Value: "0.7"},
		{Name: "osd-datetime-format", Value: "%Y-%m-%d %H:%M:%S"},
		{Name: "logs-level", Value: "2"},
	})
	require.Empty(t, dropped)

	assert.Equal(t, int64(3), doc["max-capture-error-count"])
	assert.Equal(t, 0.7, doc["face-confidence"])
	assert.Equal(t, "%Y-%m-%d %H:%M:%S", doc["osd-datetime-format"])
	assert.Equal(t, "trace", doc["logs-level"])
}

func TestTranscode_Bool(t *testing.T) {
	doc, dropped := Common.Transcode([]Param{{Name: "flag-copy-event-data", Value: "1"}})
	require.Empty(t, dropped)
	assert.Equal(t, true, doc["flag-copy-event-data"])

	doc, dropped = Common.Transcode([]Param{{Name: "flag-copy-event-data", Value: "0"}})
	require.Empty(t, dropped)
	assert.Equal(t, false, doc["flag-copy-event-data"])
}

func TestTranscode_UnknownNamesAreDroppedSilently(t *testing.T) {
	doc, dropped := Stream.Transcode([]Param{
		{Name: "no-such-parameter", Value: "1"},
		{Name: "dnn-fr-model-name", Value: "arcface"}, // common-only
	})
	assert.Empty(t, dropped)
	assert.Empty(t, doc)
}

func TestTranscode_BadValuesAreReported(t *testing.T) {
	doc, dropped := Stream.Transcode([]Param{
		{Name: "logs-level", Value: "7"},
		{Name: "capture-timeout", Value: "later"},
		{Name: "max-capture-error-count", Value: "3.5"},
		{Name: "margin", Value: "5"},
	})

	assert.Equal(t, Document{"margin": 5.0}, doc)
	require.Len(t, dropped, 3)

	var te *TranscodeError
	require.ErrorAs(t, dropped[0], &te)
	assert.Equal(t, "logs-level", te.Name)
	assert.Equal(t, KindEnum, te.Kind)
	assert.Equal(t, ScopeStream, te.Scope)
	assert.Contains(t, te.Error(), `"logs-level"="7"`)
}

func TestTranscode_LastValueWins(t *testing.T) {
	doc, _ := Stream.Transcode([]Param{
		{Name: "margin", Value: "1"},
		{Name: "margin", Value: "2"},
	})
	assert.Equal(t, 2.0, doc["margin"])
}

func TestStreamDocument_WorkArea(t *testing.T) {
	params := []Param{{Name: "tolerance", Value: "0.5"}}

	doc, dropped := StreamDocument(params, WorkArea{X: 10, Y: 20, Width: 640, Height: 480})
	require.Empty(t, dropped)
	assert.Equal(t, []int{10, 20, 640, 480}, doc[WorkAreaKey])
	assert.Equal(t, 0.5, doc["tolerance"])

	doc, _ = StreamDocument(params, WorkArea{X: 10, Y: 20, Width: 0, Height: 480})
	_, present := doc[WorkAreaKey]
	assert.False(t, present)
}

func TestSchemaLookup(t *testing.T) {
	f, ok := Stream.Lookup("best-quality-interval-after")
	require.True(t, ok)
	assert.Equal(t, KindDuration, f.Kind)

	_, ok = Stream.Lookup("retry-pause")
	assert.False(t, ok, "rename rules are not schema fields")

	assert.Equal(t, ScopeCommon, Common.Scope())
	assert.Equal(t, "stream", Stream.Scope().String())
}

// legacyCommonSettings is a representative dump of the legacy common_settings table.
var legacyCommonSettings = []Param{
	{Name: "dnn-fr-input-width", Value: "112"},
	{Name: "dnn-fr-input-height", Value: "112"},
	{Name: "dnn-fr-output-size", Value: "512"},
	{Name: "dnn-fr-model-name", Value: "arcface"},
	{Name: "sg-max-descriptor-count", Value: "1000"},
	{Name: "comments-no-faces", Value: "No faces found"},
	{Name: "callback-timeout", Value: "2"},
	{Name: "flag-copy-event-data", Value: "1"},
	{Name: "max-capture-error-count", Value: "3"},
	{Name: "blur", Value: "300"},
	{Name: "face-confidence", Value: "0.7"},
	{Name: "best-quality-interval-before", Value: "5"},
	{Name: "best-quality-interval-after", Value: "2"},
	{Name: "capture-timeout", Value: "2"},
	{Name: "delay-between-frames", Value: "0.5"},
	{Name: "retry-pause", Value: "30"},
	{Name: "logs-level", Value: "1"},
	{Name: "dnn-fd-inference-server", Value: "127.0.0.1:8000"},
	{Name: "legacy-only-parameter", Value: "x"},
}

func TestTranscode_Golden(t *testing.T) {
	g := goldie.New(t)

	for _, tc := range []struct {
		name   string
		schema *Schema
	}{
		{"common_document", Common},
		{"default_stream_document", Stream},
	} {
		t.Run(tc.name, func(t *testing.T) {
			doc, dropped := tc.schema.Transcode(legacyCommonSettings)
			require.Empty(t, dropped)

			out, err := json.MarshalIndent(doc, "", "  ")
			require.NoError(t, err)
			g.Assert(t, tc.name, append(out, '\n'))
		})
	}
}
