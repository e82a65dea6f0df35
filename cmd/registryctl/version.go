package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/nulzo/model-registry/internal/cli"
	"github.com/nulzo/model-registry/internal/httpclient"
	ucli "github.com/urfave/cli/v3"
)

// AppVersion is overridden at build time with -ldflags "-X main.AppVersion=...".
var AppVersion = "v0.0.0"

const releasesURL = "https://api.github.com/repos/nulzo/model-registry/releases/latest"

type release struct {
	TagName string `json:"tag_name"`
}

func versionCommand(out io.Writer) *ucli.Command {
	return &ucli.Command{
		Name:  "version",
		Usage: "Print the client version",
		Flags: []ucli.Flag{
			&ucli.BoolFlag{Name: "check", Usage: "Compare against the latest published release"},
			&ucli.StringFlag{Name: "releases-url", Value: releasesURL, Hidden: true},
		},
		Action: func(ctx context.Context, cmd *ucli.Command) error {
			fmt.Fprintf(out, "registryctl %s\n", AppVersion)
			if !cmd.Bool("check") {
				return nil
			}

			latest, outdated, err := checkForUpdates(ctx, cmd.String("releases-url"), AppVersion)
			if err != nil {
				return fmt.Errorf("update check failed: %w", err)
			}
			if outdated {
				fmt.Fprintf(out, "%s a newer release is available: %s\n", cli.WarningSign(), latest)
				return nil
			}
			fmt.Fprintf(out, "%s up to date\n", cli.CheckMark())
			return nil
		},
	}
}

// checkForUpdates reports the latest release tag and whether current is older.
func checkForUpdates(ctx context.Context, url, current string) (string, bool, error) {
	cur, err := version.NewVersion(current)
	if err != nil {
		return "", false, err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var rel release
	hc := &http.Client{}
	if err := httpclient.SendRequest(ctx, hc, http.MethodGet, url, nil, nil, &rel); err != nil {
		return "", false, err
	}

	latest, err := version.NewVersion(rel.TagName)
	if err != nil {
		return "", false, fmt.Errorf("release tag %q: %w", rel.TagName, err)
	}
	return rel.TagName, cur.LessThan(latest), nil
}
