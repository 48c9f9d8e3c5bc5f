package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"text", FormatText},
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"", FormatText},
		{"invalid", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseFormat(tt.input); got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewFormatterStdout(t *testing.T) {
	f, err := NewFormatter(FormatText, "", true)
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}
	defer f.Close()

	if f.Format() != FormatText {
		t.Errorf("Format() = %q, want %q", f.Format(), FormatText)
	}
	if f.file != nil {
		t.Error("file should be nil for stdout")
	}
	if !f.colored {
		t.Error("colored should stay enabled for stdout")
	}
}

func TestNewFormatterWithFile(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "output.txt")

	f, err := NewFormatter(FormatJSON, outputPath, true)
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}

	if f.file == nil {
		t.Error("file should not be nil for file output")
	}
	if f.colored {
		t.Error("colored should be false when writing to file")
	}

	if err := f.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if _, err := os.Stat(outputPath); os.IsNotExist(err) {
		t.Error("output file should exist")
	}
}

func TestNewFormatterInvalidPath(t *testing.T) {
	_, err := NewFormatter(FormatText, "/nonexistent/directory/file.txt", false)
	if err == nil {
		t.Error("NewFormatter() should error for invalid path")
	}
}

func TestTableRenderText(t *testing.T) {
	tests := []struct {
		name  string
		table *Table
		want  []string
	}{
		{
			name: "simple_table",
			table: NewTable(
				"Duplicated Blocks",
				[]string{"Location", "Lines", "Also At"},
				[][]string{
					{"a.go:4-6", "3", "b.go:5-7"},
					{"b.go:5-7", "3", "a.go:4-6"},
				},
				nil,
				nil,
			),
			want: []string{"Duplicated Blocks", "LOCATION", "LINES", "ALSO AT", "a.go:4-6", "b.go:5-7"},
		},
		{
			name: "table_with_footer",
			table: NewTable(
				"Summary",
				[]string{"Metric", "Value"},
				[][]string{{"Findings", "4"}},
				[]string{"Files", "12"},
				nil,
			),
			want: []string{"Summary", "METRIC", "VALUE", "Findings", "12"},
		},
		{
			name:  "no_title",
			table: NewTable("", []string{"A", "B"}, [][]string{{"1", "2"}}, nil, nil),
			want:  []string{"A", "B", "1", "2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.table.RenderText(&buf, false); err != nil {
				t.Fatalf("RenderText() error: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("RenderText() missing %q in output:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestTableRenderMarkdown(t *testing.T) {
	table := NewTable(
		"Results",
		[]string{"Location", "Also At"},
		[][]string{{"a.go:4-6", "b.go:5-7"}},
		nil,
		nil,
	)

	var buf bytes.Buffer
	if err := table.RenderMarkdown(&buf); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"## Results", "| Location | Also At |", "| --- | --- |", "| a.go:4-6 | b.go:5-7 |"} {
		if !strings.Contains(output, want) {
			t.Errorf("RenderMarkdown() missing %q in output:\n%s", want, output)
		}
	}
}

func TestTableRenderData(t *testing.T) {
	t.Run("with_data_field", func(t *testing.T) {
		data := map[string]any{"custom": "data"}
		table := NewTable("Title", []string{"H1"}, [][]string{{"R1"}}, nil, data)

		result, ok := table.RenderData().(map[string]any)
		if !ok || result["custom"] != "data" {
			t.Errorf("RenderData() = %v, want the Data field", table.RenderData())
		}
	})

	t.Run("without_data_field", func(t *testing.T) {
		table := NewTable(
			"Test",
			[]string{"Name", "Value"},
			[][]string{{"foo", "100"}, {"bar", "200"}},
			nil,
			nil,
		)

		rows, ok := table.RenderData().([]map[string]string)
		if !ok {
			t.Fatalf("RenderData() should return []map[string]string, got %T", table.RenderData())
		}
		if len(rows) != 2 {
			t.Errorf("RenderData() returned %d rows, want 2", len(rows))
		}
		if rows[0]["Name"] != "foo" || rows[0]["Value"] != "100" {
			t.Errorf("RenderData() row 0 = %v", rows[0])
		}
	})
}

func TestFormatterOutputRenderable(t *testing.T) {
	table := NewTable("Test", []string{"A"}, [][]string{{"1"}}, nil, nil)

	for _, format := range []Format{FormatText, FormatJSON, FormatMarkdown} {
		t.Run(string(format), func(t *testing.T) {
			outputPath := filepath.Join(t.TempDir(), "out."+string(format))
			f, err := NewFormatter(format, outputPath, false)
			if err != nil {
				t.Fatalf("NewFormatter() error: %v", err)
			}
			defer f.Close()

			if err := f.Output(table); err != nil {
				t.Errorf("Output() error: %v", err)
			}
			f.Close()

			content, err := os.ReadFile(outputPath)
			if err != nil {
				t.Fatalf("ReadFile() error: %v", err)
			}
			if len(content) == 0 {
				t.Error("output file should not be empty")
			}
		})
	}
}

func TestFormatterOutputJSON(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "test.json")

	f, err := NewFormatter(FormatJSON, outputPath, false)
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}

	data := map[string]any{
		"findings": []string{"a", "b"},
		"files":    12,
	}
	if err := f.Output(data); err != nil {
		t.Fatalf("Output() error: %v", err)
	}
	f.Close()

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(content, &result); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if result["files"].(float64) != 12 {
		t.Errorf("files = %v, want 12", result["files"])
	}
}

func TestFormatterMessages(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "output.txt")

	f, err := NewFormatter(FormatText, outputPath, false)
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}
	f.Warning("low disk space")
	f.Success("no duplicates found")
	f.Close()

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}

	output := string(content)
	if !strings.Contains(output, "WARNING: low disk space") {
		t.Errorf("missing warning in %q", output)
	}
	if !strings.Contains(output, "no duplicates found") {
		t.Errorf("missing success message in %q", output)
	}
}
