package main

import (
	"github.com/dukex/qmsflow/pkg/scheduler"
	"github.com/urfave/cli/v3"
)

const defaultPort = 9091

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Record store URL (memory://, file://<dir>, postgres://...)",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "rule-store-url",
			Usage:   "Rule store URL (memory or redis://...)",
			Value:   "memory",
			Sources: cli.EnvVars("RULE_STORE_URL"),
		},
		&cli.StringFlag{
			Name:    "definitions",
			Usage:   "JSON file with rules and workflows to load at startup",
			Sources: cli.EnvVars("DEFINITIONS_FILE"),
		},
	}
}

func busFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Value:   "localhost:9092",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
		&cli.BoolFlag{
			Name:    "otel-enabled",
			Usage:   "Export traces over OTLP/HTTP",
			Sources: cli.EnvVars("OTEL_ENABLED"),
		},
	}
}

func scheduleFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "overdue-check-schedule",
		Usage:   "Cron expression for the overdue CAPA sweep",
		Value:   scheduler.DefaultSchedule,
		Sources: cli.EnvVars("OVERDUE_CHECK_SCHEDULE"),
	}
}

func withFlags(groups ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag

	for _, group := range groups {
		flags = append(flags, group...)
	}

	return flags
}
