package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/qmsflow/pkg/cmd"
	"github.com/dukex/qmsflow/pkg/log"
	"github.com/dukex/qmsflow/pkg/notifier"
	"github.com/dukex/qmsflow/pkg/persistence/memory"
	"github.com/dukex/qmsflow/pkg/ruledefs"
	"github.com/dukex/qmsflow/pkg/rules"
	"github.com/urfave/cli/v3"
)

var errMissingFile = errors.New("definitions file argument is required")

func NewRulesCommand() *cli.Command {
	return &cli.Command{
		Name:  "rules",
		Usage: "Validate and import rule definition files",
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "Check a definitions file against the schema",
				ArgsUsage: "<file>",
				Action: func(ctx context.Context, command *cli.Command) error {
					path := command.Args().First()
					if path == "" {
						return errMissingFile
					}

					doc, err := ruledefs.Load(path)
					if err != nil {
						return err
					}

					_, err = fmt.Fprintf(command.Root().Writer, "%s: %d rules, %d workflows OK\n", path, len(doc.Rules), len(doc.Workflows))

					return err
				},
			},
			{
				Name:      "import",
				Usage:     "Store the rules of a definitions file in the rule store",
				ArgsUsage: "<file>",
				Flags: withFlags(
					[]cli.Flag{
						&cli.StringFlag{
							Name:     "rule-store-url",
							Usage:    "Rule store URL (redis://...)",
							Required: true,
							Sources:  cli.EnvVars("RULE_STORE_URL"),
						},
					},
					commonFlags(),
				),
				Action: func(ctx context.Context, command *cli.Command) error {
					log.Setup(command.String("log-level"), command.String("log-format"))
					logger := log.WithModule("qmsflow-rules")

					path := command.Args().First()
					if path == "" {
						return errMissingFile
					}

					doc, err := ruledefs.Load(path)
					if err != nil {
						return err
					}

					store, err := cmd.NewRuleStore(ctx, command.String("rule-store-url"))
					if err != nil {
						return err
					}

					defer func() {
						if err := store.Close(); err != nil {
							logger.ErrorContext(ctx, "Failed to close rule store", "error", err)
						}
					}()

					if len(doc.Workflows) > 0 {
						logger.WarnContext(ctx, "Workflows are not persisted; load them with --definitions at startup",
							"workflows", len(doc.Workflows))
					}

					// Only the store is touched by PutRule; records and
					// notifications are never used on this path.
					engine := rules.NewEngine(logger, store, memory.NewStore(), notifier.NewLog(logger))

					result, err := ruledefs.Import(ctx, logger, &ruledefs.Document{Rules: doc.Rules}, engine, nil)
					if err != nil {
						return err
					}

					_, err = fmt.Fprintf(command.Root().Writer, "imported %d rules\n", result.Rules)

					return err
				},
			},
		},
	}
}
