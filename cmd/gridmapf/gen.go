package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/elektrokombinacija/gridmapf/internal/instance"
)

// scalingSizes are the agent counts of the scaling suite.
var scalingSizes = []int{5, 10, 20, 50, 100}

func newGenCmd(a *app) *cobra.Command {
	var (
		opts    instance.GenOptions
		seed    int64
		output  string
		scaling bool
	)

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate random scenario files",
		Long: `Gen draws a random map and agents whose goals are reachable from their
starts. With --scaling it writes one scenario per agent count of a scaling
suite, the grid side growing with the square root of the agent count.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			suite := []instance.GenOptions{opts}
			if scaling {
				if output == "" {
					return fmt.Errorf("--scaling needs --output")
				}
				suite = suite[:0]
				for _, n := range scalingSizes {
					side := max(int(math.Ceil(math.Sqrt(float64(n))*3)), 8)
					suite = append(suite, instance.GenOptions{Rows: side, Cols: side, Density: opts.Density, Agents: n})
				}
			}

			for _, o := range suite {
				inst, err := instance.Generate(rand.New(rand.NewSource(seed)), o)
				if err != nil {
					return err
				}
				if inst.NumAgents() < o.Agents {
					a.logger.Warn("placed fewer agents than requested",
						zap.Int("requested", o.Agents), zap.Int("placed", inst.NumAgents()))
				}
				if output == "" {
					return instance.Write(cmd.OutOrStdout(), inst)
				}

				path := output
				if scaling {
					if err := os.MkdirAll(output, 0o755); err != nil {
						return err
					}
					path = filepath.Join(output, fmt.Sprintf("random_%dx%d_a%d_s%d.txt", o.Rows, o.Cols, o.Agents, seed))
				}
				if err := instance.Save(path, inst); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Generated: %s (%d agents, %dx%d grid)\n",
					path, inst.NumAgents(), o.Rows, o.Cols)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Rows, "rows", 8, "grid rows")
	cmd.Flags().IntVar(&opts.Cols, "cols", 8, "grid columns")
	cmd.Flags().Float64Var(&opts.Density, "density", 0.2, "fraction of blocked cells")
	cmd.Flags().IntVar(&opts.Agents, "agents", 5, "number of agents")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed")
	cmd.Flags().StringVar(&output, "output", "", "output file, or directory with --scaling (default: stdout)")
	cmd.Flags().BoolVar(&scaling, "scaling", false, "generate the scaling suite")
	return cmd
}
