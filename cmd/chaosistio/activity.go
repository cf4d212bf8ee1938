package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/litmuschaos/chaos-istio/pkg/discovery"
	"github.com/litmuschaos/chaos-istio/pkg/environment"
	"github.com/litmuschaos/chaos-istio/pkg/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"sigs.k8s.io/yaml"
)

type activityCmd struct {
	out      io.Writer
	activity discovery.Activity
	details  types.FaultDetails

	routes     string
	fault      string
	percentage float64
	settings   string
	output     string
}

func newActivityCmd(activity discovery.Activity, out io.Writer) *cobra.Command {
	a := &activityCmd{
		out:      out,
		activity: activity,
	}
	environment.GetENV(&a.details, environment.OSEnvironment())

	cmd := &cobra.Command{
		Use:   strings.ReplaceAll(activity.Name, "_", "-"),
		Short: activity.Doc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("percentage") {
				a.details.Percentage = &a.percentage
			}
			return a.run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringVar(&a.details.VirtualServiceName, "name", a.details.VirtualServiceName, "Name of the VirtualService")
	f.StringVarP(&a.details.Namespace, "namespace", "n", a.details.Namespace, "Namespace of the VirtualService")
	f.StringVar(&a.details.APIVersion, "api-version", a.details.APIVersion, "API version of the VirtualService")
	f.StringVarP(&a.settings, "settings", "s", "", "File holding the configuration and secrets sections (yaml or json)")
	f.StringVarP(&a.output, "output", "o", "json", "Output format (json or yaml)")

	if hasArgument(activity, "routes") {
		f.StringVar(&a.routes, "routes", "", "Targeted routes as a json or yaml list, or @file")
	}
	if hasArgument(activity, "fault") {
		f.StringVar(&a.fault, "fault", "", "Fault block as json or yaml, or @file")
	}
	if hasArgument(activity, "fixed_delay") {
		f.StringVar(&a.details.FixedDelay, "fixed-delay", a.details.FixedDelay, "Delay added to the requests")
	}
	if hasArgument(activity, "http_status") {
		f.IntVar(&a.details.HTTPStatus, "http-status", a.details.HTTPStatus, "Status returned to the aborted requests")
	}
	if hasArgument(activity, "percentage") {
		f.Float64Var(&a.percentage, "percentage", 100, "Percentage of the requests affected")
	}

	return cmd
}

func (a *activityCmd) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if a.details.VirtualServiceName == "" {
		return errors.New("the name of the VirtualService is required")
	}

	if a.routes != "" {
		if err := decodeArgument(a.routes, &a.details.Routes); err != nil {
			return errors.Wrap(err, "invalid routes")
		}
	}
	if a.fault != "" {
		if err := decodeArgument(a.fault, &a.details.Fault); err != nil {
			return errors.Wrap(err, "invalid fault")
		}
	}
	if a.settings != "" {
		configuration, secrets, err := loadSettings(a.settings)
		if err != nil {
			return err
		}
		a.details.Configuration = configuration
		a.details.Secrets = secrets
	}

	result, err := a.activity.Run(ctx, &a.details)
	if err != nil {
		return err
	}
	return printResult(a.out, result, a.output)
}

func hasArgument(activity discovery.Activity, name string) bool {
	for _, arg := range activity.Arguments {
		if arg.Name == name {
			return true
		}
	}
	return false
}

// decodeArgument decodes a json or yaml value, read from a file when prefixed with @
func decodeArgument(value string, into interface{}) error {
	data := []byte(value)
	if strings.HasPrefix(value, "@") {
		b, err := os.ReadFile(strings.TrimPrefix(value, "@"))
		if err != nil {
			return err
		}
		data = b
	}
	return yaml.Unmarshal(data, into)
}

// loadSettings reads the configuration and secrets sections of a settings file
func loadSettings(path string) (types.Configuration, types.Secrets, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, nil, errors.Wrapf(err, "unable to read settings %s", path)
	}

	configuration := types.Configuration(v.GetStringMap("configuration"))
	secrets := types.Secrets{}
	// viper lower cases the keys, secrets are looked up by env var name
	for k, val := range v.GetStringMapString("secrets") {
		secrets[strings.ToUpper(k)] = val
	}
	return configuration, secrets, nil
}

func printResult(out io.Writer, result *types.APIResult, format string) error {
	var b []byte
	var err error
	switch format {
	case "yaml":
		b, err = yaml.Marshal(result)
	case "json":
		b, err = jsonIndent(result)
	default:
		return errors.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}
