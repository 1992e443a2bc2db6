package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yangwenmai/latentvault/internal/model"
)

var listDomain string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the vault in display order",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVarP(&listDomain, "domain", "d", "ALL", "domain filter: ALL, X, Y, Z or L")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	filter, err := model.ParseDomainFilter(listDomain)
	if err != nil {
		return err
	}

	svc, closeDB, err := openVault()
	if err != nil {
		return err
	}
	defer closeDB()

	recs, err := svc.List(cmd.Context(), filter)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SHORT ID\tDOMAIN\tFAV\tSCORE\tUSES\tNAME")
	for _, r := range recs {
		fav := ""
		if r.IsFavorite {
			fav = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", r.ShortID, r.Domain, fav, r.PreferenceScore, r.UsageCount, r.Name)
	}
	return tw.Flush()
}
