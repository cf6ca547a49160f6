package cli

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// testResult is one source's connectivity outcome.
type testResult struct {
	name    string
	ok      bool
	elapsed time.Duration
	err     error
}

// newTestCommand checks connectivity for all or selected sources.
func newTestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test [source...]",
		Short: "Test connectivity to configured sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := FromContext(cmd.Context())

			names := args
			if len(names) == 0 {
				names = app.Config.SourceNames()
			}
			if len(names) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No sources configured.")
				return nil
			}

			var mu sync.Mutex
			results := make([]testResult, 0, len(names))

			// Sources are independent; probe them concurrently.
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(8)
			for _, name := range names {
				g.Go(func() error {
					start := time.Now()
					res := testResult{name: name}

					adp, _, err := app.connectSource(ctx, name)
					if err != nil {
						res.err = err
					} else {
						res.ok = adp.TestConnection(ctx)
						_ = adp.Disconnect()
					}
					res.elapsed = time.Since(start)

					mu.Lock()
					results = append(results, res)
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			sort.Slice(results, func(i, j int) bool { return results[i].name < results[j].name })

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Source", "Status", "Elapsed"})

			failures := 0
			for _, res := range results {
				status := "ok"
				switch {
				case res.err != nil:
					status = fmt.Sprintf("error: %v", res.err)
					failures++
				case !res.ok:
					status = "unreachable"
					failures++
				}
				t.AppendRow(table.Row{res.name, status, res.elapsed.Round(time.Millisecond)})
			}
			t.Render()

			if failures > 0 {
				return fmt.Errorf("%d of %d sources failed", failures, len(results))
			}
			return nil
		},
	}
}
