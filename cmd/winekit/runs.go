package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rushteam/winekit/artifact"
)

// newRunsCmd 查询运行登记（需要 --store redis 或 --store badger 指向持久化存储）
func newRunsCmd(opts *globalOptions) *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recorded runs, or show one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, cleanup, err := opts.runContext(0)
			if err != nil {
				return err
			}
			defer cleanup()
			if rc.Store == nil {
				return fmt.Errorf("runs needs --store redis or --store badger")
			}
			reg := artifact.NewRegistry(rc.Store, prefix)
			if len(args) == 1 {
				rec, err := reg.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(rec)
			}
			recs, err := reg.List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(recs)
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", artifact.DefaultKeyPrefix, "registry key prefix")
	return cmd
}
