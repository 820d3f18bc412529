package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/spf13/cobra"

	"github.com/de-tools/access-atlas/pkg/alert/logsink"
	snsalert "github.com/de-tools/access-atlas/pkg/alert/sns"
	"github.com/de-tools/access-atlas/pkg/models/domain"
	"github.com/de-tools/access-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/access-atlas/pkg/services/dispatch"
	"github.com/de-tools/access-atlas/pkg/services/registry"
	"github.com/de-tools/access-atlas/pkg/services/review"
	"github.com/de-tools/access-atlas/pkg/services/source"
	"github.com/de-tools/access-atlas/pkg/services/source/awsiam"
	"github.com/de-tools/access-atlas/pkg/store/duckdb"
	"github.com/de-tools/access-atlas/pkg/store/duckdb/alertstate"
	"github.com/de-tools/access-atlas/pkg/store/duckdb/findings"
	s3store "github.com/de-tools/access-atlas/pkg/store/s3"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"

	// Source fetches walk remote identity APIs page by page.
	reviewTimeout = 5 * time.Minute
)

type ReviewCmd struct {
	profilesPath string
	profile      string
	configPath   string
	rulesPath    string
	format       string
	output       string
	s3Bucket     string
	snsTopic     string
	storePath    string
	sources      source.Registry
	stdout       io.Writer
}

func NewReviewCmd(sources source.Registry, stdout io.Writer) *cobra.Command {
	rc := &ReviewCmd{sources: sources, stdout: stdout}
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Run an access risk review for a profile",
		RunE:  rc.run,
	}

	// Define flags
	cmd.Flags().StringVar(&rc.profilesPath, "profiles", registry.DefaultPath(), "Path to the connection profiles file")
	cmd.Flags().StringVar(&rc.profile, "profile", "", "Connection profile to review")
	cmd.Flags().StringVar(&rc.configPath, "config", "", "Path to the review configuration file")
	cmd.Flags().StringVar(&rc.rulesPath, "rules", "", "Path to a custom factor rules file")
	cmd.Flags().StringVar(&rc.format, "format", formatTable, "Report format: table, csv or json")
	cmd.Flags().StringVar(&rc.output, "output", "", "Write the report to a file instead of stdout")
	cmd.Flags().StringVar(&rc.s3Bucket, "s3-bucket", "", "Upload the report to this S3 bucket")
	cmd.Flags().StringVar(&rc.snsTopic, "sns-topic", "", "Publish alerts to this SNS topic ARN")
	cmd.Flags().StringVar(&rc.storePath, "store", "", "Persist the run and alert state into this DuckDB file")

	// Mark required flags
	_ = cmd.MarkFlagRequired("profile")

	return cmd
}

func (rc *ReviewCmd) run(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), reviewTimeout)
	defer cancel()

	cfg, err := review.LoadConfig(rc.configPath)
	if err != nil {
		return err
	}

	factors, err := review.NewRegistry(review.BuiltinFactors()...)
	if err != nil {
		return err
	}
	if rc.rulesPath != "" {
		rules, err := review.LoadRules(rc.rulesPath)
		if err != nil {
			return err
		}
		if err := rules.Register(factors); err != nil {
			return err
		}
	}

	profiles, err := registry.NewProfileRegistry(rc.profilesPath)
	if err != nil {
		return fmt.Errorf("failed to load profiles from %s: %w", rc.profilesPath, err)
	}
	profile, err := profiles.GetProfile(rc.profile)
	if err != nil {
		return err
	}

	provider, err := rc.sources.Create(ctx, profile)
	if err != nil {
		return fmt.Errorf("failed to create a provider for platform %s: %w", profile.Platform, err)
	}

	result, err := review.NewService(factors).RunFromSource(ctx, provider, cfg)
	if err != nil {
		return err
	}

	dispatcher, cleanup, err := rc.buildDispatcher(ctx, cfg, profile.Name)
	if err != nil {
		return err
	}
	defer cleanup()

	return dispatcher.Dispatch(ctx, result)
}

// buildDispatcher translates the sink flags into a dispatcher. The returned
// cleanup closes whatever the sinks hold open.
func (rc *ReviewCmd) buildDispatcher(
	ctx context.Context,
	cfg domain.ReviewConfig,
	profile string,
) (*dispatch.Dispatcher, func(), error) {
	dispatcher := dispatch.NewDispatcher(cfg)

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	writer := rc.stdout
	if rc.output != "" {
		f, err := os.Create(rc.output)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create %s: %w", rc.output, err)
		}
		cleanups = append(cleanups, func() { _ = f.Close() })
		writer = f
	}

	switch rc.format {
	case formatTable:
		dispatcher.AddReportSink(export.NewReporter(writer))
	case formatCSV:
		dispatcher.AddReportSink(export.NewCSVSink(writer))
	case formatJSON:
		dispatcher.AddReportSink(export.NewJSONSink(writer))
	default:
		cleanup()
		return nil, nil, fmt.Errorf("unknown format %q, expected table, csv or json", rc.format)
	}

	if rc.storePath != "" {
		db, err := duckdb.NewDB(duckdb.Settings{DbPath: rc.storePath})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to open %s: %w", rc.storePath, err)
		}
		cleanups = append(cleanups, func() { _ = db.Close() })

		history, err := findings.NewStore(db)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		dispatcher.AddReportSink(findings.NewSink(history, profile))

		states, err := alertstate.NewStore(db)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		dispatcher.SetSuppressor(dispatch.NewSuppressor(states, cfg.SuppressionWindow()))
	}

	if rc.s3Bucket != "" || rc.snsTopic != "" {
		awsCfg, err := awsiam.LoadConfig(ctx, "", "")
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if rc.s3Bucket != "" {
			render, format := renderFor(rc.format)
			client := s3.NewFromConfig(*awsCfg)
			dispatcher.AddReportSink(s3store.NewReportSink(client, rc.s3Bucket, format, render))
		}
		if rc.snsTopic != "" {
			client := sns.NewFromConfig(*awsCfg)
			dispatcher.AddAlertSink(snsalert.NewPublisher(client, rc.snsTopic, ""))
		}
	}

	dispatcher.AddAlertSink(logsink.NewSink())

	return dispatcher, cleanup, nil
}

// renderFor picks the S3 object representation for a report format. Table
// reports upload as CSV.
func renderFor(format string) (s3store.RenderFunc, string) {
	if format == formatJSON {
		return export.RenderJSON, formatJSON
	}
	return export.RenderCSV, formatCSV
}
