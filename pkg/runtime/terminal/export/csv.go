package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

// csvHeader is the tabular output contract, one row per finding.
var csvHeader = []string{"identity_id", "identity_type", "score", "level", "top_factor", "evidence"}

// RenderCSV serializes findings into the tabular contract.
func RenderCSV(result domain.ReviewResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, f := range result.Findings {
		top, _ := f.TopFactor()
		record := []string{
			f.IdentityID,
			string(f.IdentityType),
			strconv.Itoa(f.Score),
			f.Level.String(),
			top.Factor,
			top.Evidence,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CSVSink writes the tabular form to a stream.
type CSVSink struct {
	writer io.Writer
}

func NewCSVSink(writer io.Writer) *CSVSink {
	if writer == nil {
		writer = os.Stdout
	}
	return &CSVSink{writer: writer}
}

func (c *CSVSink) Write(_ context.Context, result domain.ReviewResult) error {
	data, err := RenderCSV(result)
	if err != nil {
		return err
	}
	_, err = c.writer.Write(data)
	return err
}
