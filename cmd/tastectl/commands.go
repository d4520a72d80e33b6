package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	service "github.com/okian/tasteid/internal/app"
	"github.com/okian/tasteid/internal/fixtures"
	"github.com/okian/tasteid/pkg/logger"
)

var errVerifyFailed = errors.New("dataset verification failed")

type generateFlags struct {
	users   int
	reviews int
	seed    uint64
}

func (f *generateFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.users, "users", 24, "Number of listeners to generate")
	cmd.Flags().IntVar(&f.reviews, "reviews", 12, "Reviews written by each listener")
	cmd.Flags().Uint64Var(&f.seed, "seed", 42, "Random seed")
}

func (f *generateFlags) generate(cmd *cobra.Command) (*fixtures.Dataset, error) {
	g := fixtures.NewGenerator(
		fixtures.WithUsers(f.users),
		fixtures.WithReviewsPerUser(f.reviews),
		fixtures.WithSeed(f.seed),
		fixtures.WithLogger(logger.Named("fixtures")),
	)
	return g.Generate(cmd.Context())
}

func (c *cli) generateCmd() *cobra.Command {
	var (
		gen generateFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic review dataset as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := gen.generate(cmd)
			if err != nil {
				return err
			}
			if out == "" {
				return ds.Encode(cmd.OutOrStdout())
			}
			return ds.WriteFile(out)
		},
	}
	gen.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}

type seedResult struct {
	Reviews int `json:"reviews"`
	Users   int `json:"users"`
}

func (c *cli) seedCmd() *cobra.Command {
	var (
		gen  generateFlags
		file string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load reviews from a YAML dataset, or generate them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				ds  *fixtures.Dataset
				err error
			)
			if file != "" {
				ds, err = fixtures.ReadFile(file)
			} else {
				ds, err = gen.generate(cmd)
			}
			if err != nil {
				return err
			}
			return c.withService(cmd.Context(), func(svc *service.Service) error {
				if err := svc.AddReviews(cmd.Context(), ds.Reviews); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), seedResult{Reviews: len(ds.Reviews), Users: len(ds.Assignments)})
			})
		},
	}
	gen.register(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML dataset to load instead of generating")
	return cmd
}

func (c *cli) computeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compute <user>",
		Short: "Compute and store a user's TasteID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd.Context(), func(svc *service.Service) error {
				t, err := svc.ComputeTasteID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), t)
			})
		},
	}
}

func (c *cli) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <user>",
		Short: "Show a user's stored TasteID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd.Context(), func(svc *service.Service) error {
				t, err := svc.GetTasteID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), t)
			})
		},
	}
}

func (c *cli) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <user>",
		Short: "List a user's TasteID snapshots, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd.Context(), func(svc *service.Service) error {
				h, err := svc.History(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), h)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum snapshots to show (0 for all)")
	return cmd
}

func (c *cli) compareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <userA> <userB>",
		Short: "Show the compatibility of two users",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd.Context(), func(svc *service.Service) error {
				m, err := svc.CompareTasteIDs(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), m)
			})
		},
	}
}

func (c *cli) similarCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "similar <user>",
		Short: "Rank the users whose taste is closest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd.Context(), func(svc *service.Service) error {
				s, err := svc.FindSimilar(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), s)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum results (0 for the default)")
	return cmd
}

func (c *cli) recomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute [user...]",
		Short: "Recompute TasteIDs for the given users, or for every reviewer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd.Context(), func(svc *service.Service) error {
				summary, err := svc.Recompute(cmd.Context(), args)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), summary)
			})
		},
	}
}

func (c *cli) verifyCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check computed TasteIDs against the personas of a dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, err := fixtures.ReadFile(file)
			if err != nil {
				return err
			}
			return c.withService(cmd.Context(), func(svc *service.Service) error {
				rep, err := fixtures.Verify(cmd.Context(), ds, svc, logger.Named("fixtures"))
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), rep); err != nil {
					return err
				}
				if !rep.OK() {
					return fmt.Errorf("%w: %d mismatches, %d missing", errVerifyFailed, len(rep.Mismatches), rep.Missing)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML dataset the store was seeded from")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd.Context(), func(svc *service.Service) error {
				st, err := svc.GetStats(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), st)
			})
		},
	}
}
