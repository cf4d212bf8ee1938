// Package main implements the chaosistio CLI, running the Istio fault activities by name.
package main

import (
	goflag "flag"
	"io"
	"os"

	"github.com/litmuschaos/chaos-istio/pkg/discovery"
	"github.com/litmuschaos/chaos-istio/pkg/environment"
	"github.com/litmuschaos/chaos-istio/pkg/fault"
	"github.com/litmuschaos/chaos-istio/pkg/log"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var globalUsage = `The chaosistio cli injects and removes http faults (delay and abort)
in the routes of Istio VirtualServices.

To delay the traffic going to the v2 subset of reviews:

   $ chaosistio add-delay-fault --name reviews --fixed-delay 5s \
       --routes '[{"destination": {"host": "reviews", "subset": "v2"}}]'
`

// exitActivityFailed is the exit code of an activity that could not proceed
const exitActivityFailed = 2

type rootOptions struct {
	logLevel  string
	logFormat string
}

func newRootCmd(activities []discovery.Activity, stdout io.Writer, args []string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "chaosistio",
		Short:        "Inject http faults in Istio VirtualServices",
		Long:         globalUsage,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return log.Configure(opts.logLevel, opts.logFormat)
		},
	}

	klogFlags := goflag.NewFlagSet("klog", goflag.ContinueOnError)
	klog.InitFlags(klogFlags)
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.logLevel, "log-level", environment.Getenv("LOG_LEVEL", "info"), "log level (trace, debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", environment.Getenv("LOG_FORMAT", "text"), "log format (text or json)")

	cmd.AddCommand(newDiscoverCmd(stdout))
	for _, activity := range activities {
		cmd.AddCommand(newActivityCmd(activity, stdout))
	}

	cmd.SetArgs(args)
	return cmd
}

func main() {
	cmd := newRootCmd(discovery.Activities(), os.Stdout, os.Args[1:])
	if err := cmd.Execute(); err != nil {
		if fault.IsActivityFailed(err) {
			os.Exit(exitActivityFailed)
		}
		os.Exit(1)
	}
}
