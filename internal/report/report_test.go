package report

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/JonMunkholm/paraprep/internal/core"
	"github.com/JonMunkholm/paraprep/internal/prepare"
)

const sampleCSV = `name,type,events,score
a,summer,10,1.5
b,winter,,2.5
c,summer,20,
d,Summer,30,4.0
e,summer,40,5.0
f,winter,50,6.0
`

func sampleTable(t *testing.T) *core.Table {
	t.Helper()
	tbl, err := core.ReadCSV(strings.NewReader(sampleCSV), core.ReadOptions{})
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	return tbl
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestDescribe(t *testing.T) {
	d := Describe(sampleTable(t))

	if d.Rows != 6 || len(d.Columns) != 4 {
		t.Fatalf("shape = %d x %d, want 6 x 4", d.Rows, len(d.Columns))
	}
	if d.Head.Len() != 5 || d.Tail.Len() != 5 {
		t.Errorf("head/tail = %d/%d, want 5/5", d.Head.Len(), d.Tail.Len())
	}

	wantTypes := map[string]string{"name": "text", "type": "text", "events": "int", "score": "float"}
	for _, c := range d.Columns {
		if c.Type != wantTypes[c.Name] {
			t.Errorf("type of %s = %s, want %s", c.Name, c.Type, wantTypes[c.Name])
		}
	}
	if len(d.Stats) != 2 {
		t.Fatalf("len(Stats) = %d, want 2", len(d.Stats))
	}

	// events: 10 20 30 40 50
	ev := d.Stats[0]
	if ev.Column != "events" || ev.Count != 5 {
		t.Fatalf("Stats[0] = %+v", ev)
	}
	checks := []struct {
		name      string
		got, want float64
	}{
		{"mean", ev.Mean, 30},
		{"std", ev.Std.Float64, math.Sqrt(250)},
		{"min", ev.Min, 10},
		{"25%", ev.Q25, 20},
		{"50%", ev.Q50, 30},
		{"75%", ev.Q75, 40},
		{"max", ev.Max, 50},
	}
	for _, tt := range checks {
		if !approx(tt.got, tt.want) {
			t.Errorf("events %s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	// score: 1.5 2.5 4 5 6 -> 25% at position 1 is 2.5
	sc := d.Stats[1]
	if !approx(sc.Q25, 2.5) || !approx(sc.Q50, 4) || !approx(sc.Mean, 3.8) {
		t.Errorf("score stats = %+v", sc)
	}
}

func TestQuantile_Interpolates(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	tests := []struct {
		q    float64
		want float64
	}{
		{0, 1},
		{0.25, 1.75},
		{0.5, 2.5},
		{0.75, 3.25},
		{1, 4},
	}
	for _, tt := range tests {
		if got := quantile(values, tt.q); !approx(got, tt.want) {
			t.Errorf("quantile(%v) = %v, want %v", tt.q, got, tt.want)
		}
	}
}

func TestColumnStats_SingleValue(t *testing.T) {
	c := core.NewTextColumn("x", []string{"7", ""})
	s, ok := ColumnStats(core.InferNumeric(c))
	if !ok {
		t.Fatal("ColumnStats() ok = false")
	}
	if s.Std.Valid {
		t.Errorf("Std = %v, want null for one value", s.Std)
	}
}

func TestMissing(t *testing.T) {
	m := Missing(sampleTable(t))

	if !reflect.DeepEqual(m.Rows, []int{1, 2}) {
		t.Errorf("Rows = %v, want [1 2]", m.Rows)
	}
	want := map[string]int{"name": 0, "type": 0, "events": 1, "score": 1}
	for _, c := range m.Counts {
		if c.Nulls != want[c.Column] {
			t.Errorf("nulls in %s = %d, want %d", c.Column, c.Nulls, want[c.Column])
		}
	}
	if m.Sample.Len() != 2 {
		t.Errorf("Sample.Len() = %d, want 2", m.Sample.Len())
	}
}

func TestCategories(t *testing.T) {
	c, err := Categories(sampleTable(t), "type")
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if !reflect.DeepEqual(c.Values, []string{"summer", "winter", "Summer"}) {
		t.Errorf("Values = %v", c.Values)
	}
	want := []ValueCount{{"summer", 3}, {"winter", 2}, {"Summer", 1}}
	if !reflect.DeepEqual(c.Counts, want) {
		t.Errorf("Counts = %v, want %v", c.Counts, want)
	}

	if _, err := Categories(sampleTable(t), "nope"); err == nil {
		t.Error("Categories(nope) error = nil, want error")
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeText, false},
		{"md", ModeMarkdown, false},
		{"CSV", ModeCSV, false},
		{"json", ModeJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestRenderer_Table(t *testing.T) {
	tbl := sampleTable(t).Head(2)

	tests := []struct {
		mode Mode
		want []string
	}{
		{ModeText, []string{"name", "b", NullText}},
		{ModeMarkdown, []string{"| name |", "| b |"}},
		{ModeCSV, []string{"name,type,events,score", "b,winter,,2.5"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewRenderer(&buf, tt.mode).Table(tbl); err != nil {
				t.Fatalf("Table() error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("output missing %q:\n%s", w, buf.String())
				}
			}
		})
	}
}

func TestRenderer_DescriptionJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRenderer(&buf, ModeJSON).Description(Describe(sampleTable(t))); err != nil {
		t.Fatalf("Description() error = %v", err)
	}

	var got struct {
		Rows  int              `json:"rows"`
		Head  []map[string]any `json:"head"`
		Stats []map[string]any `json:"stats"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got.Rows != 6 || len(got.Head) != 5 || len(got.Stats) != 2 {
		t.Errorf("decoded = %+v", got)
	}
	if got.Head[1]["events"] != nil {
		t.Errorf("head[1].events = %v, want null", got.Head[1]["events"])
	}
}

func TestDescribe_InfinityIsNull(t *testing.T) {
	tbl, err := core.ReadCSV(strings.NewReader("x\n1\nInf\n3\n-Infinity\n"), core.ReadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	d := Describe(tbl)
	if len(d.Stats) != 1 {
		t.Fatalf("Stats = %+v, want one numeric column", d.Stats)
	}
	if s := d.Stats[0]; s.Count != 2 || !approx(s.Mean, 2) || !approx(s.Max, 3) {
		t.Errorf("Stats = %+v, want count 2, mean 2, max 3", s)
	}

	var buf bytes.Buffer
	if err := NewRenderer(&buf, ModeJSON).Description(d); err != nil {
		t.Fatalf("Description() error = %v", err)
	}
	if !json.Valid(buf.Bytes()) {
		t.Errorf("output is not JSON: %s", buf.String())
	}
}

func TestRenderer_MissingText(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRenderer(&buf, ModeText).Missing(Missing(sampleTable(t))); err != nil {
		t.Fatalf("Missing() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Rows with missing values (2)") {
		t.Errorf("output missing heading:\n%s", buf.String())
	}
}

func TestStepInspector(t *testing.T) {
	var buf bytes.Buffer
	insp := NewStepInspector(NewRenderer(&buf, ModeText))

	tbl := sampleTable(t)
	insp.Inspect(prepare.StepResult{Name: "coerce_integers", Rows: tbl.Len(), Columns: tbl.Width(), Affected: []string{"events"}}, tbl)

	out := buf.String()
	for _, want := range []string{"After coerce_integers", "columns: name, type, events, score", "events"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
