package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Pesokrava/review_widget/internal/config"
	"github.com/Pesokrava/review_widget/internal/domain"
	"github.com/Pesokrava/review_widget/internal/pkg/database"
	"github.com/Pesokrava/review_widget/internal/pkg/logger"
	"github.com/Pesokrava/review_widget/internal/repository"
	"github.com/Pesokrava/review_widget/internal/usecase/review"
)

type (
	configLoader func() (*config.Config, error)
	storeOpener  func(cfg *config.Config, log *logger.Logger) (*repository.Store, error)
)

// cli carries what every subcommand needs once the root has loaded config
type cli struct {
	load configLoader
	open storeOpener

	cfg *config.Config
	log *logger.Logger
}

func newRootCmd(load configLoader, open storeOpener) *cobra.Command {
	c := &cli{load: load, open: open}

	root := &cobra.Command{
		Use:           "reviewctl",
		Short:         "Administer the review store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			c.cfg = cfg
			c.log = logger.New(cfg.Env)
			return nil
		},
	}

	root.AddCommand(
		c.migrateCmd(),
		c.ensureIndexesCmd(),
		c.seedCmd(),
		c.statsCmd(),
	)
	return root
}

// withStore opens the configured store for the duration of fn
func (c *cli) withStore(ctx context.Context, fn func(store *repository.Store) error) error {
	store, err := c.open(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := store.Close(context.WithoutCancel(ctx)); err != nil {
			c.log.Error("Failed to close store", err)
		}
	}()
	return fn(store)
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(store *repository.Store) error {
				if store.DB == nil {
					return errors.New("migrate requires STORE_DRIVER=postgres")
				}
				applied, err := database.RunMigrations(store.DB, c.cfg.Database.MigrationsDir)
				if err != nil {
					return err
				}
				for _, name := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
				}
				return nil
			})
		},
	}
}

func (c *cli) ensureIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the MongoDB review indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(store *repository.Store) error {
				if store.Mongo == nil {
					return errors.New("ensure-indexes requires STORE_DRIVER=mongo")
				}
				if err := store.Mongo.EnsureIndexes(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "indexes ensured")
				return nil
			})
		},
	}
}

func (c *cli) seedCmd() *cobra.Command {
	var (
		productID string
		website   string
		count     int
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo reviews into a partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return errors.New("--count must be at least 1")
			}
			return c.withStore(cmd.Context(), func(store *repository.Store) error {
				svc := review.NewService(store.Reviews, nil, nil, c.log)
				now := time.Now().UTC()

				for i := 0; i < count; i++ {
					rev := &domain.Review{
						ID:        uuid.NewString(),
						ProductID: productID,
						Website:   website,
						Name:      fmt.Sprintf("Reviewer %d", i+1),
						Rating:    rand.IntN(5) + 1,
						Title:     fmt.Sprintf("Demo review %d", i+1),
						Content:   "Seeded by reviewctl",
						Date:      now.Add(-time.Duration(i) * time.Hour),
					}
					if err := svc.SubmitReview(cmd.Context(), rev); err != nil {
						return fmt.Errorf("failed to seed review %d: %w", i+1, err)
					}
				}

				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d reviews into %s/%s\n", count, productID, website)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&productID, "product", "", "product id")
	cmd.Flags().StringVar(&website, "website", "", "website")
	cmd.Flags().IntVar(&count, "count", 10, "number of reviews")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("website")
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	var productID, website string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the review stats of a partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(store *repository.Store) error {
				svc := review.NewService(store.Reviews, nil, nil, c.log)
				result, err := svc.GetReviewStats(cmd.Context(), productID, website)
				if err != nil {
					return err
				}
				if result.Degraded {
					return errors.New("review store unavailable")
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				return enc.Encode(result.ReviewStats)
			})
		},
	}

	cmd.Flags().StringVar(&productID, "product", "", "product id")
	cmd.Flags().StringVar(&website, "website", "", "website")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("website")
	return cmd
}
