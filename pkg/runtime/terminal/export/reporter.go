package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/de-tools/access-atlas/pkg/models/domain"
)

type TableConfig struct {
	IdentityWidth int
	TypeWidth     int
	ScoreWidth    int
	LevelWidth    int
	FactorWidth   int
	EvidenceWidth int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		IdentityWidth: 28,
		TypeWidth:     6,
		ScoreWidth:    5,
		LevelWidth:    8,
		FactorWidth:   22,
		EvidenceWidth: 48,
	}
}

// Reporter renders a review result as a console table.
type Reporter struct {
	writer io.Writer
	config TableConfig
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

type tableView struct {
	GeneratedAt time.Time
	Total       int
	High        int
	Critical    int
	Findings    []domain.Finding
	Warnings    []domain.Warning
}

func (c *Reporter) Write(_ context.Context, result domain.ReviewResult) error {
	funcMap := template.FuncMap{
		"formatRow": func(identity, idType, score, level, factor, evidence interface{}) string {
			return fmt.Sprintf("| %-*v | %-*v | %*v | %-*v | %-*v | %-*v |",
				c.config.IdentityWidth, identity,
				c.config.TypeWidth, idType,
				c.config.ScoreWidth, score,
				c.config.LevelWidth, level,
				c.config.FactorWidth, factor,
				c.config.EvidenceWidth, evidence)
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+%s+%s+%s+",
				strings.Repeat("-", c.config.IdentityWidth+2),
				strings.Repeat("-", c.config.TypeWidth+2),
				strings.Repeat("-", c.config.ScoreWidth+2),
				strings.Repeat("-", c.config.LevelWidth+2),
				strings.Repeat("-", c.config.FactorWidth+2),
				strings.Repeat("-", c.config.EvidenceWidth+2))
		},
		"topFactor": func(f domain.Finding) string {
			if top, ok := f.TopFactor(); ok {
				return top.Factor
			}
			return ""
		},
		"topEvidence": func(f domain.Finding) string {
			if top, ok := f.TopFactor(); ok {
				return truncateString(top.Evidence, c.config.EvidenceWidth)
			}
			return ""
		},
	}

	tmpl := `
Access Risk Review ({{.Total}} identities at risk)

Generated: {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}
High: {{.High}}  Critical: {{.Critical}}

{{separator}}
{{formatRow "Identity" "Type" "Score" "Level" "Top Factor" "Evidence"}}
{{separator}}
{{range .Findings}}{{formatRow .IdentityID .IdentityType .Score .Level (topFactor .) (topEvidence .)}}
{{end}}{{separator}}
{{if .Warnings}}
Warnings:
{{range .Warnings}}- [{{.Stage}}] {{.Subject}}: {{.Detail}}
{{end}}{{end}}`

	t, err := template.New("review").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	counts := result.CountByLevel()
	view := tableView{
		GeneratedAt: result.GeneratedAt,
		Total:       len(result.Findings),
		High:        counts[domain.RiskLevelHigh],
		Critical:    counts[domain.RiskLevelCritical],
		Findings:    result.Findings,
		Warnings:    result.Warnings,
	}

	return t.Execute(c.writer, view)
}

func truncateString(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	if limit <= 3 {
		return s[:limit]
	}
	return s[:limit-3] + "..."
}
