package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mateogon/EpubConsolidator2/internal/catalog"
)

func newListCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded conversions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := catalog.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			conversions, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(conversions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No conversions recorded.")
				return nil
			}

			rows := make([][]string, 0, len(conversions))
			for _, c := range conversions {
				extra := ""
				if c.HasAggregate {
					extra = "aggregate"
				}
				rows = append(rows, []string{
					strconv.FormatInt(c.ID, 10),
					c.BookTitle,
					strconv.Itoa(c.ChapterCount),
					extra,
					c.Status,
					c.CreatedAt.Local().Format(time.DateTime),
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Book", "Chapters", "Extra", "Status", "Created"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "consolidator.db", "Catalog database path")

	return cmd
}
