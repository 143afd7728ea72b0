// Package resolvecmder provides the resolve command, which shows the backend
// a connection URL selects without connecting to it.
package resolvecmder

import (
	"fmt"
	neturl "net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	brokerutils "github.com/GKaszewski/k-core/pkg/broker/utils"
	"github.com/GKaszewski/k-core/pkg/cliui"
	"github.com/GKaszewski/k-core/pkg/db"
	"github.com/GKaszewski/k-core/pkg/utils"
)

const resolveLongDesc string = `Show which backend a URL selects in this build.

Database URLs follow the pool rules: postgres:// selects Postgres when it is
compiled in, sqlite forms select SQLite, and any other URL falls back to a
SQLite file unless --strict is set. With --broker, the URL is resolved as a
broker URL instead.

Examples:
  kcore resolve postgres://u:p@localhost/app
  kcore resolve sqlite::memory:
  kcore resolve --strict mysql://db/app
  kcore resolve --broker kafka://k1:9092,k2:9092`

const resolveShortDesc string = "Show which backend a URL selects"

const maxDSNWidth = 60

type resolveCommander struct {
	strict   bool
	isBroker bool
	maxConns uint
}

func NewResolveCmd() *cobra.Command {
	cmder := &resolveCommander{}

	cmd := &cobra.Command{
		Use:   "resolve <url>",
		Short: resolveShortDesc,
		Long:  resolveLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pairs []cliui.Pair
			var err error
			if cmder.isBroker {
				pairs, err = cmder.broker(args[0])
			} else {
				pairs, err = cmder.database(args[0])
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", cliui.KeyValues(pairs))
			return nil
		},
	}

	cmd.Flags().BoolVar(&cmder.strict, "strict", false, "Reject URLs with an unrecognised scheme")
	cmd.Flags().BoolVar(&cmder.isBroker, "broker", false, "Resolve a broker URL")
	cmd.Flags().UintVar(&cmder.maxConns, "max-connections", db.DefaultMaxConnections, "Requested pool size")

	return cmd
}

func (c *resolveCommander) database(url string) ([]cliui.Pair, error) {
	cfg := db.NewConfig(url)
	cfg.StrictScheme = c.strict
	cfg.MaxConnections = uint32(min(c.maxConns, uint(^uint32(0)))) //nolint:gosec // clamped

	enabled := db.Enabled()
	plan, err := db.Resolve(cfg, enabled)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(enabled))
	for _, k := range enabled {
		names = append(names, k.String())
	}

	pairs := []cliui.Pair{
		{Key: "backend", Value: plan.Kind.String()},
		{Key: "dsn", Value: utils.Truncate(redact(plan.DSN), maxDSNWidth)},
		{Key: "in_memory", Value: strconv.FormatBool(plan.InMemory)},
		{Key: "max_connections", Value: strconv.FormatUint(uint64(plan.MaxConnections), 10)},
		{Key: "min_connections", Value: strconv.FormatUint(uint64(plan.MinConnections), 10)},
		{Key: "acquire_timeout", Value: plan.AcquireTimeout.String()},
		{Key: "compiled_in", Value: strings.Join(names, ", ")},
	}
	if plan.Fallback {
		pairs = append(pairs, cliui.Pair{Key: "warning", Value: cliui.WarnMark + " unrecognised scheme " + plan.Scheme + ", falling back to sqlite"})
	}
	return pairs, nil
}

func (c *resolveCommander) broker(url string) ([]cliui.Pair, error) {
	kind, err := brokerutils.Resolve(url)
	if err != nil {
		return nil, err
	}
	return []cliui.Pair{
		{Key: "backend", Value: string(kind)},
		{Key: "url", Value: url},
	}, nil
}

// redact hides a password in URL-form DSNs.
func redact(dsn string) string {
	u, err := neturl.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}
