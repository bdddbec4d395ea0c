package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/beanwork/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipStore: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "beanwork %s\n", version.Version)
		},
	}
}
