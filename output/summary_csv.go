package output

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
)

type SummaryRow struct {
	Area         string  `csv:"area"`
	Scene        string  `csv:"scene"`
	Datetime     string  `csv:"datetime"`
	Window       string  `csv:"window"`
	UsedFallback bool    `csv:"used_fallback"`
	ValidPixels  int     `csv:"valid_pixels"`
	Mean         float64 `csv:"mean"`
	Min          float64 `csv:"min"`
	Max          float64 `csv:"max"`
	StdDev       float64 `csv:"std_dev"`
}

// AppendSummary appends rows to the CSV at path, writing the header only
// when the file is new or empty.
func AppendSummary(path string, rows []*SummaryRow) error {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open summary file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		err = gocsv.MarshalFile(&rows, file)
	} else {
		err = gocsv.MarshalWithoutHeaders(&rows, file)
	}
	if err != nil {
		return fmt.Errorf("failed to write summary rows: %w", err)
	}
	return nil
}

func ReadSummary(path string) ([]*SummaryRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var rows []*SummaryRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("failed to read summary file: %w", err)
	}
	return rows, nil
}
