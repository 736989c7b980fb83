package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"

	"github.com/risor-io/pathprof/profiler"
)

func engineReport() *profiler.Report {
	e := profiler.New()
	for i := 0; i < 2; i++ {
		e.Enter(2)
		e.Branch()
		e.Land(40)
		e.Branch()
		e.Land(50)
		e.Return(2)
	}
	e.Enter(0)
	e.Return(0)
	return e.Report()
}

func document(t *testing.T) *Document {
	t.Helper()
	d, err := New("merge", engineReport(),
		WithResult(7),
		WithSteps(120),
		WithTime(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)),
	)
	require.Nil(t, err)
	return d
}

func TestNewDocument(t *testing.T) {
	d := document(t)
	id, err := uuid.FromString(d.RunID)
	require.Nil(t, err)
	require.Equal(t, byte(4), id.Version())

	require.Equal(t, "merge", d.Program)
	require.Equal(t, int64(7), d.Result)
	require.Equal(t, uint64(120), d.Steps)
	require.Equal(t, 2, d.PathCount())
	require.Len(t, d.Functions, 2)
	require.Equal(t, uint32(0), d.Functions[0].Index)
	require.Equal(t, Path{PCs: []uint32{0, 40, 50}, Count: 2}, d.Functions[1].Paths[0])

	other := document(t)
	require.NotEqual(t, d.RunID, other.RunID)
}

func TestSelect(t *testing.T) {
	d := document(t)

	byCount, err := d.Select(Selection{MinCount: 2})
	require.Nil(t, err)
	require.Len(t, byCount.Functions, 1)
	require.Equal(t, uint32(2), byCount.Functions[0].Index)

	// The source document is unchanged.
	require.Len(t, d.Functions, 2)

	filter, err := CompileFilter("length == 1")
	require.Nil(t, err)
	byFilter, err := d.Select(Selection{Filter: filter})
	require.Nil(t, err)
	require.Len(t, byFilter.Functions, 1)
	require.Equal(t, uint32(0), byFilter.Functions[0].Index)

	byName, err := d.Select(Selection{Functions: []string{"nothing"}})
	require.Nil(t, err)
	require.Empty(t, byName.Functions)
}

func TestFilterVariables(t *testing.T) {
	fn := Function{Index: 2, Name: "merge"}
	p := Path{PCs: []uint32{0, 40, 50}, Count: 3}
	tests := []struct {
		source string
		want   bool
	}{
		{"function == 2", true},
		{`name == "merge"`, true},
		{"length > 2 && count >= 3", true},
		{"40 in pcs", true},
		{"41 in pcs", false},
		{"count > 3", false},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			filter, err := CompileFilter(tt.source)
			require.Nil(t, err)
			require.Equal(t, tt.source, filter.String())
			got, err := filter.Match(fn, p)
			require.Nil(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFilterErrors(t *testing.T) {
	_, err := CompileFilter("length +")
	require.NotNil(t, err)

	_, err = CompileFilter("count + 1")
	require.NotNil(t, err)

	_, err = CompileFilter("unknown > 1")
	require.NotNil(t, err)
}

func TestWriteText(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	d := document(t)
	require.Nil(t, Write(&buf, d, "text"))
	out := buf.String()

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	require.True(t, strings.HasPrefix(lines[0], "merge (2 paths, 120 steps, run "+d.RunID+")"))
	require.Contains(t, lines[1], "func[0] func 0")
	require.Contains(t, lines[2], "[0] x1")
	require.Contains(t, lines[3], "func[2] func 2")
	require.Contains(t, lines[4], "[0 40 50] x2")
}

func TestWriteJSON(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	d := document(t)
	require.Nil(t, Write(&buf, d, "JSON"))

	var decoded Document
	require.Nil(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.True(t, d.CreatedAt.Equal(decoded.CreatedAt))
	decoded.CreatedAt = d.CreatedAt
	require.Equal(t, *d, decoded)

	buf.Reset()
	require.Nil(t, WriteJSON(&buf, d, true))
	require.Contains(t, buf.String(), "run_id")
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	d := document(t)
	require.Nil(t, Write(&buf, d, "yaml"))

	var decoded Document
	require.Nil(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, d.RunID, decoded.RunID)
	require.Equal(t, d.Functions, decoded.Functions)
}

func TestUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, document(t), "xml")
	require.NotNil(t, err)
	require.Equal(t, "unknown output format: xml", err.Error())
}
