package export

import "fmt"

// Dataset is tabular export content. Notes are printed after the table, one per line.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
	Notes   []string
}

// AddRow appends a row, padding or truncating it to the header width.
func (d *Dataset) AddRow(values ...string) {
	row := make([]string, len(d.Headers))
	copy(row, values)
	d.Rows = append(d.Rows, row)
}

// FormatFloat renders a score with two decimals.
func FormatFloat(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func (d Dataset) validate(format string) error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", format)
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			return fmt.Errorf("%s row %d has %d cells, want %d", format, i, len(row), len(d.Headers))
		}
	}
	return nil
}
