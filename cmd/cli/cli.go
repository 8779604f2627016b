package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/urfave/cli-altsrc/v3"
	tomlsrc "github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"marcovega/pgrecord/internal/config"
	"marcovega/pgrecord/internal/export"
	"marcovega/pgrecord/pgrecord"
	"marcovega/pgrecord/pgrecord/backend"
)

var outputFormats = []string{"xlsx", "json"}

func validateOutputFormat(format string) error {
	if !slices.Contains(outputFormats, strings.ToLower(format)) {
		return fmt.Errorf("output format %s is not implemented", format)
	}
	return nil
}

// splitQualified splits a schema.table argument, defaulting to public.
func splitQualified(name string) (string, string) {
	if schema, table, ok := strings.Cut(name, "."); ok {
		return schema, table
	}
	return "public", name
}

func Run(cfg *config.Config) {
	var configPath string
	var connection string
	var outputFormat string

	cmd := &cli.Command{
		Name:        "pgrecord",
		Description: "Record-oriented table access for PostgreSQL",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Value:       "./config/config.toml",
				Usage:       "path to the configuration file",
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:        "connection",
				Aliases:     []string{"c"},
				Usage:       "named connection from the configuration",
				Destination: &connection,
				Sources: cli.NewValueSourceChain(
					tomlsrc.TOML("default_connection", altsrc.NewStringPtrSourcer(&configPath))),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "describe",
				Usage:     "print column and primary key metadata for a table",
				ArgsUsage: "schema.table",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return fmt.Errorf("describe expects exactly one schema.table argument")
					}
					return describe(ctx, cfg, connection, c.Args().Get(0))
				},
			},
			{
				Name:      "export",
				Usage:     "scan tables and write them to a file",
				ArgsUsage: "schema.table... output",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "output-format",
						Usage:       "xlsx or json; inferred from the output extension when omitted",
						Destination: &outputFormat,
						Action: func(ctx context.Context, c *cli.Command, s string) error {
							return validateOutputFormat(s)
						},
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() < 2 {
						return fmt.Errorf("export expects at least one table and an output path")
					}
					args := c.Args().Slice()
					tables, output := args[:len(args)-1], args[len(args)-1]

					if outputFormat == "" {
						ext := filepath.Ext(output)
						if ext == "" || ext == "." {
							return fmt.Errorf("output format is empty and cannot be inferred")
						}
						outputFormat = ext[1:]
						if err := validateOutputFormat(outputFormat); err != nil {
							return err
						}
					}

					return exportTables(ctx, cfg, connection, tables, output, outputFormat)
				},
			},
			{
				Name:  "check",
				Usage: "verify every configured connection answers a ping",
				Action: func(ctx context.Context, c *cli.Command) error {
					return check(ctx, cfg)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func openPool(ctx context.Context, cfg *config.Config, connection string) (*backend.Pool, error) {
	conn := cfg.GetConnection(connection)
	if conn == nil {
		return nil, fmt.Errorf("connection %q is not configured", connection)
	}

	return backend.Open(ctx, conn.DSN(cfg.Timeout))
}

func describe(ctx context.Context, cfg *config.Config, connection, qualified string) error {
	pool, err := openPool(ctx, cfg, connection)
	if err != nil {
		return err
	}
	defer pool.Close()

	dctx := pgrecord.NewContext(pool)
	defer dctx.Close()

	schema, table := splitQualified(qualified)
	meta, err := dctx.Metadata(schema, table)
	if err != nil {
		return err
	}

	fmt.Printf("%s.%s\n", schema, table)
	for _, col := range meta.Columns {
		marker := ""
		if slices.Contains(meta.PrimaryKey, col.Name) {
			marker = " (pk)"
		}
		fmt.Printf("  %s %s%s\n", col.Name, col.TypeName, marker)
	}

	return nil
}

func exportTables(ctx context.Context, cfg *config.Config, connection string, names []string, output, format string) error {
	pool, err := openPool(ctx, cfg, connection)
	if err != nil {
		return err
	}
	defer pool.Close()

	var g errgroup.Group
	g.SetLimit(max(int(cfg.MaxWorkers), 1))

	tables := make([]export.Table, len(names))
	for i, name := range names {
		g.Go(func() error {
			schema, table := splitQualified(name)

			dctx := pgrecord.NewContext(pool)
			defer dctx.Close()

			meta, err := dctx.Metadata(schema, table)
			if err != nil {
				return err
			}

			var records []pgrecord.Record
			for record, err := range dctx.Records(schema, table) {
				if err != nil {
					return err
				}
				records = append(records, record)
			}

			tables[i] = export.Table{Name: name, Columns: meta.Columns, Records: records}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	switch strings.ToLower(format) {
	case "xlsx":
		return export.Excel(ctx, tables, output)
	case "json":
		return export.JSON(tables, output)
	default:
		return fmt.Errorf("output format %s is not implemented", format)
	}
}

func check(ctx context.Context, cfg *config.Config) error {
	for name, conn := range cfg.Connections {
		pool, err := backend.Open(ctx, conn.DSN(cfg.Timeout))
		if err != nil {
			return err
		}

		err = pool.Check(name, cfg.MaxRetries)
		pool.Close()
		if err != nil {
			return err
		}
		fmt.Printf("%s: ok\n", name)
	}

	return nil
}
