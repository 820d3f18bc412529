package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/de-tools/access-atlas/pkg/runtime/terminal"
	"github.com/de-tools/access-atlas/pkg/services/source"
	"github.com/de-tools/access-atlas/pkg/services/source/awsiam"
	"github.com/de-tools/access-atlas/pkg/services/source/databricks"
	"github.com/de-tools/access-atlas/pkg/services/source/file"
	"github.com/de-tools/access-atlas/pkg/services/source/snowflake"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	sources := source.NewRegistry()
	factories := map[string]source.Factory{
		awsiam.Platform:     awsiam.Factory,
		databricks.Platform: databricks.Factory,
		snowflake.Platform:  snowflake.Factory,
		file.Platform:       file.Factory,
	}
	for platform, factory := range factories {
		if err := sources.Register(platform, factory); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	cli := terminal.NewCLI(terminal.Options{
		Sources: sources,
		Output:  os.Stdout,
	})

	if err := cli.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
