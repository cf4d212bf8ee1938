package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/litmuschaos/chaos-istio/pkg/discovery"
	"github.com/spf13/cobra"
)

func newDiscoverCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "List the activities offered by this extension",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			b, err := jsonIndent(discovery.Discover())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, string(b))
			return err
		},
	}
}

func jsonIndent(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
