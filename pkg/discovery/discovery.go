package discovery

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/litmuschaos/chaos-istio/pkg/fault"
	"github.com/litmuschaos/chaos-istio/pkg/log"
	"github.com/litmuschaos/chaos-istio/pkg/types"
)

// Version of the extension, overridden at build time
var Version = "0.1.5"

const (
	// ExtensionName is the name the orchestrator knows this extension by
	ExtensionName = "chaostoolkit-istio"
	// Target is the system this extension acts upon
	Target = "istio"

	actionsModule = "chaosistio.fault.actions"
	probesModule  = "chaosistio.fault.probes"
)

// Activity types
const (
	Action = "action"
	Probe  = "probe"
)

// Argument describes one argument of an activity
type Argument struct {
	Name    string      `json:"name"`
	Type    string      `json:"type"`
	Default interface{} `json:"default,omitempty"`
}

// Activity is an operation the orchestrator can invoke by name
type Activity struct {
	Type      string     `json:"type"`
	Name      string     `json:"name"`
	Module    string     `json:"mod"`
	Doc       string     `json:"doc"`
	Arguments []Argument `json:"arguments"`

	Run func(ctx context.Context, details *types.FaultDetails) (*types.APIResult, error) `json:"-"`
}

// Extension names the extension in the discovery document
type Extension struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Discovery is the document returned to the orchestrator
type Discovery struct {
	ID         string     `json:"id"`
	Target     string     `json:"target"`
	Date       string     `json:"date"`
	Platform   string     `json:"platform"`
	Extension  Extension  `json:"extension"`
	Activities []Activity `json:"activities"`
}

// Discover lists the capabilities of this extension
func Discover() Discovery {
	log.Info("Discovering capabilities from chaostoolkit-istio")
	return Discovery{
		ID:         uuid.New().String(),
		Target:     Target,
		Date:       time.Now().UTC().Format(time.RFC3339),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		Extension:  Extension{Name: ExtensionName, Version: Version},
		Activities: Activities(),
	}
}

// Activities returns the activities bound to the default patcher
func Activities() []Activity {
	return ActivitiesFor(fault.New())
}

// Lookup finds an activity by name
func Lookup(activities []Activity, name string) (Activity, bool) {
	for _, a := range activities {
		if a.Name == name {
			return a, true
		}
	}
	return Activity{}, false
}

func target() []Argument {
	return []Argument{{Name: "virtual_service_name", Type: "str"}}
}

func routes() []Argument {
	return []Argument{{Name: "routes", Type: "list"}}
}

func location() []Argument {
	return []Argument{
		{Name: "ns", Type: "str", Default: types.DefaultNamespace},
		{Name: "version", Type: "str", Default: types.DefaultAPIVersion},
	}
}

func args(groups ...[]Argument) []Argument {
	var all []Argument
	for _, g := range groups {
		all = append(all, g...)
	}
	return all
}

// ActivitiesFor returns the activities running against p
func ActivitiesFor(p *fault.Patcher) []Activity {
	return []Activity{
		{
			Type:      Probe,
			Name:      "get_virtual_service",
			Module:    probesModule,
			Doc:       "Get a virtual service identified by `name`",
			Arguments: args(target(), location()),
			Run: func(ctx context.Context, d *types.FaultDetails) (*types.APIResult, error) {
				return p.GetResource(ctx, d.VirtualServiceName, d.Namespace, d.APIVersion, d.Configuration, d.Secrets)
			},
		},
		{
			Type:      Action,
			Name:      "set_fault",
			Module:    actionsModule,
			Doc:       "Set fault injection on the routes of the virtual service identified by `name`. An existing fault is updated.",
			Arguments: args(target(), routes(), []Argument{{Name: "fault", Type: "mapping"}}, location()),
			Run: func(ctx context.Context, d *types.FaultDetails) (*types.APIResult, error) {
				return p.SetFault(ctx, d.VirtualServiceName, d.Routes, d.Fault, d.Namespace, d.APIVersion, d.Configuration, d.Secrets)
			},
		},
		{
			Type:      Action,
			Name:      "unset_fault",
			Module:    actionsModule,
			Doc:       "Unset fault injection from the routes of the virtual service identified by `name`",
			Arguments: args(target(), routes(), location()),
			Run: func(ctx context.Context, d *types.FaultDetails) (*types.APIResult, error) {
				return p.UnsetFault(ctx, d.VirtualServiceName, d.Routes, d.Namespace, d.APIVersion, d.Configuration, d.Secrets)
			},
		},
		{
			Type:      Action,
			Name:      "add_delay_fault",
			Module:    actionsModule,
			Doc:       "Add delay to the virtual service identified by `name`",
			Arguments: args(target(), []Argument{{Name: "fixed_delay", Type: "str"}}, routes(), []Argument{{Name: "percentage", Type: "float"}}, location()),
			Run: func(ctx context.Context, d *types.FaultDetails) (*types.APIResult, error) {
				return p.AddDelayFault(ctx, d.VirtualServiceName, d.FixedDelay, d.Routes, d.Percentage, d.Namespace, d.APIVersion, d.Configuration, d.Secrets)
			},
		},
		{
			Type:      Action,
			Name:      "add_abort_fault",
			Module:    actionsModule,
			Doc:       "Abort requests early by the virtual service identified by `name`",
			Arguments: args(target(), []Argument{{Name: "http_status", Type: "int"}}, routes(), []Argument{{Name: "percentage", Type: "float"}}, location()),
			Run: func(ctx context.Context, d *types.FaultDetails) (*types.APIResult, error) {
				return p.AddAbortFault(ctx, d.VirtualServiceName, d.HTTPStatus, d.Routes, d.Percentage, d.Namespace, d.APIVersion, d.Configuration, d.Secrets)
			},
		},
		{
			Type:      Action,
			Name:      "remove_delay_fault",
			Module:    actionsModule,
			Doc:       "Remove delay from the virtual service identified by `name`",
			Arguments: args(target(), routes(), location()),
			Run: func(ctx context.Context, d *types.FaultDetails) (*types.APIResult, error) {
				return p.RemoveDelayFault(ctx, d.VirtualServiceName, d.Routes, d.Namespace, d.APIVersion, d.Configuration, d.Secrets)
			},
		},
		{
			Type:      Action,
			Name:      "remove_abort_fault",
			Module:    actionsModule,
			Doc:       "Remove abort request faults from the virtual service identified by `name`",
			Arguments: args(target(), routes(), location()),
			Run: func(ctx context.Context, d *types.FaultDetails) (*types.APIResult, error) {
				return p.RemoveAbortFault(ctx, d.VirtualServiceName, d.Routes, d.Namespace, d.APIVersion, d.Configuration, d.Secrets)
			},
		},
	}
}
