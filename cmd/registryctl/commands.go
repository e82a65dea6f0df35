package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/nulzo/model-registry/internal/cli"
	"github.com/nulzo/model-registry/internal/platform/logger"
	"github.com/nulzo/model-registry/internal/proxyclient"
	"github.com/nulzo/model-registry/internal/registry"
	"github.com/nulzo/model-registry/internal/workflow"
	ucli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newCommand(out io.Writer) *ucli.Command {
	return &ucli.Command{
		Name:  "registryctl",
		Usage: "Manage model registrations through a registry server",
		Flags: []ucli.Flag{
			&ucli.StringFlag{
				Name:    "server",
				Usage:   "Base URL of the registry server",
				Value:   "http://localhost:8080",
				Sources: ucli.EnvVars("REGISTRY_SERVER"),
			},
			&ucli.StringFlag{
				Name:    "api-key",
				Usage:   "Bearer key accepted by the registry server",
				Sources: ucli.EnvVars("REGISTRY_API_KEY"),
			},
			&ucli.StringFlag{
				Name:    "user",
				Usage:   "Identity recorded in the audit trail",
				Sources: ucli.EnvVars("REGISTRY_USER", "USER"),
			},
			&ucli.BoolFlag{
				Name:  "json",
				Usage: "Print JSON instead of tables",
			},
			&ucli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "error",
				Sources: ucli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*ucli.Command{
			listCommand(out),
			providersCommand(out),
			addCommand(out),
			removeCommand(out),
			versionCommand(out),
		},
	}
}

// open builds a controller loaded from the server named by the global flags.
func open(ctx context.Context, cmd *ucli.Command) (*workflow.Controller, error) {
	if cmd.Bool("json") {
		cli.SetEnabled(false)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cmd.String("log-level")
	logCfg.Format = "console"
	errOut := cmd.Root().ErrWriter
	if errOut == nil {
		errOut = os.Stderr
	}
	log := logger.New(logCfg, errOut, zap.NewAtomicLevel())

	client, err := proxyclient.New(cmd.String("server"), cmd.String("api-key"), nil)
	if err != nil {
		return nil, err
	}

	c, err := workflow.Open(ctx, client, workflow.StaticIdentity(cmd.String("user")), log)
	if err != nil {
		return nil, fmt.Errorf("load registry: %s", registry.Message(err))
	}
	return c, nil
}

func listCommand(out io.Writer) *ucli.Command {
	return &ucli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List registrations",
		Flags: []ucli.Flag{
			&ucli.StringFlag{
				Name:  "status",
				Usage: "all, active or inactive",
				Value: "all",
			},
		},
		Action: func(ctx context.Context, cmd *ucli.Command) error {
			filter, err := registry.ParseFilter(cmd.String("status"))
			if err != nil {
				return err
			}

			c, err := open(ctx, cmd)
			if err != nil {
				return err
			}

			rows := c.Rows(filter)
			if cmd.Bool("json") {
				return cli.PrettyPrint(out, rows)
			}
			return renderRows(out, rows)
		},
	}
}

func providersCommand(out io.Writer) *ucli.Command {
	return &ucli.Command{
		Name:  "providers",
		Usage: "Show the selectable models per provider",
		Action: func(ctx context.Context, cmd *ucli.Command) error {
			c, err := open(ctx, cmd)
			if err != nil {
				return err
			}

			if cmd.Bool("json") {
				return cli.PrettyPrint(out, c.Catalog())
			}
			return renderCatalog(out, c.Catalog())
		},
	}
}

func addCommand(out io.Writer) *ucli.Command {
	return &ucli.Command{
		Name:  "add",
		Usage: "Register a model",
		Flags: []ucli.Flag{
			&ucli.StringFlag{Name: "name", Usage: "Registration name", Required: true},
			&ucli.StringFlag{Name: "provider", Usage: "openai, anthropic or custom", Required: true},
			&ucli.StringFlag{Name: "model", Usage: "Catalog model identifier (standard providers)"},
			&ucli.StringFlag{Name: "endpoint", Usage: "API endpoint (custom provider)"},
		},
		Action: func(ctx context.Context, cmd *ucli.Command) error {
			provider, err := registry.ParseProvider(cmd.String("provider"))
			if err != nil {
				return err
			}

			in := registry.CreateInput{
				Name:            cmd.String("name"),
				Provider:        provider,
				ModelIdentifier: cmd.String("model"),
				APIURL:          cmd.String("endpoint"),
			}
			if err := in.Validate(); err != nil {
				return errors.New(registry.Message(err))
			}

			c, err := open(ctx, cmd)
			if err != nil {
				return err
			}

			if !provider.IsCustom() {
				if _, ok := c.Catalog().Lookup(provider, in.ModelIdentifier); !ok {
					fmt.Fprintf(out, "%s %s is not in the %s catalog\n", cli.WarningSign(), in.ModelIdentifier, provider)
				}
			}

			c.ChangeProvider(provider)
			c.SetName(in.Name)
			c.SelectModel(in.ModelIdentifier)
			c.SetCustomEndpoint(in.APIURL)

			if err := c.Submit(ctx); err != nil {
				return fmt.Errorf("%s %s", cli.CrossMark(), c.Notice())
			}

			if cmd.Bool("json") {
				return cli.PrettyPrint(out, c.State().Registrations)
			}
			fmt.Fprintf(out, "%s registered %s\n", cli.CheckMark(), cli.Bold(in.Name))
			return renderRows(out, c.Rows(registry.FilterAll))
		},
	}
}

func removeCommand(out io.Writer) *ucli.Command {
	return &ucli.Command{
		Name:      "remove",
		Aliases:   []string{"rm"},
		Usage:     "Delete one or more registrations",
		ArgsUsage: "ID [ID...]",
		Action: func(ctx context.Context, cmd *ucli.Command) error {
			ids := cmd.Args().Slice()
			if len(ids) == 0 {
				return errors.New("at least one registration id is required")
			}

			c, err := open(ctx, cmd)
			if err != nil {
				return err
			}

			var (
				mu     sync.Mutex
				failed []string
			)
			var g errgroup.Group
			for _, id := range ids {
				g.Go(func() error {
					err := c.Remove(ctx, id)

					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						failed = append(failed, id)
						fmt.Fprintf(out, "%s %s: %s\n", cli.CrossMark(), id, registry.Message(err))
						return nil
					}
					fmt.Fprintf(out, "%s removed %s\n", cli.CheckMark(), id)
					return nil
				})
			}
			_ = g.Wait()

			if len(failed) > 0 {
				return fmt.Errorf("failed to remove %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}
}
