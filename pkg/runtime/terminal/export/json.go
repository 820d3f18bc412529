package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/de-tools/access-atlas/pkg/adapters"
	"github.com/de-tools/access-atlas/pkg/models/domain"
)

// RenderJSON serializes the structured form of the result.
func RenderJSON(result domain.ReviewResult) ([]byte, error) {
	data, err := json.MarshalIndent(adapters.MapReviewResultDomainToApi(result), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal review result: %w", err)
	}
	return data, nil
}

// JSONSink writes the structured form to a stream.
type JSONSink struct {
	writer io.Writer
}

func NewJSONSink(writer io.Writer) *JSONSink {
	if writer == nil {
		writer = os.Stdout
	}
	return &JSONSink{writer: writer}
}

func (j *JSONSink) Write(_ context.Context, result domain.ReviewResult) error {
	data, err := RenderJSON(result)
	if err != nil {
		return err
	}
	if _, err := j.writer.Write(data); err != nil {
		return err
	}
	_, err = j.writer.Write([]byte("\n"))
	return err
}
