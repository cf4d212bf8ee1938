package fault

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/litmuschaos/chaos-istio/pkg/log"
	"github.com/litmuschaos/chaos-istio/pkg/types"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utiljson "k8s.io/apimachinery/pkg/util/json"
)

// SetFault injects fault into every http rule of the VirtualService routing
// to one of the destinations of routes. An existing fault is replaced.
func (p *Patcher) SetFault(ctx context.Context, name string, routes []types.Route, fault types.Fault, namespace, apiVersion string, configuration types.Configuration, secrets types.Secrets) (*types.APIResult, error) {
	value, err := normalize(fault)
	if err != nil {
		return nil, err
	}
	return p.patchRules(ctx, "set-fault", name, routes, namespace, apiVersion, configuration, secrets,
		func(rules []interface{}, matches RouteMatchSet) int {
			return injectFault(rules, matches, value)
		})
}

// UnsetFault removes the fault of every http rule of the VirtualService routing
// to one of the destinations of routes.
func (p *Patcher) UnsetFault(ctx context.Context, name string, routes []types.Route, namespace, apiVersion string, configuration types.Configuration, secrets types.Secrets) (*types.APIResult, error) {
	return p.patchRules(ctx, "unset-fault", name, routes, namespace, apiVersion, configuration, secrets, removeFault)
}

// AddDelayFault delays the requests going through the matching routes
func (p *Patcher) AddDelayFault(ctx context.Context, name, fixedDelay string, routes []types.Route, percentage *float64, namespace, apiVersion string, configuration types.Configuration, secrets types.Secrets) (*types.APIResult, error) {
	return p.SetFault(ctx, name, routes, types.NewDelayFault(fixedDelay, percentage), namespace, apiVersion, configuration, secrets)
}

// AddAbortFault aborts the requests going through the matching routes with httpStatus
func (p *Patcher) AddAbortFault(ctx context.Context, name string, httpStatus int, routes []types.Route, percentage *float64, namespace, apiVersion string, configuration types.Configuration, secrets types.Secrets) (*types.APIResult, error) {
	return p.SetFault(ctx, name, routes, types.NewAbortFault(httpStatus, percentage), namespace, apiVersion, configuration, secrets)
}

// RemoveDelayFault removes the fault of the matching routes, whatever its kind
func (p *Patcher) RemoveDelayFault(ctx context.Context, name string, routes []types.Route, namespace, apiVersion string, configuration types.Configuration, secrets types.Secrets) (*types.APIResult, error) {
	return p.UnsetFault(ctx, name, routes, namespace, apiVersion, configuration, secrets)
}

// RemoveAbortFault removes the fault of the matching routes, whatever its kind
func (p *Patcher) RemoveAbortFault(ctx context.Context, name string, routes []types.Route, namespace, apiVersion string, configuration types.Configuration, secrets types.Secrets) (*types.APIResult, error) {
	return p.UnsetFault(ctx, name, routes, namespace, apiVersion, configuration, secrets)
}

// patchRules reads the VirtualService, lets mutate change a private copy of
// spec.http and sends the result back as a merge patch.
// No resourceVersion is sent: a change made between the read and the write is overwritten.
func (p *Patcher) patchRules(ctx context.Context, activity, name string, routes []types.Route, namespace, apiVersion string, configuration types.Configuration, secrets types.Secrets, mutate func([]interface{}, RouteMatchSet) int) (*types.APIResult, error) {
	namespace, apiVersion = withDefaults(namespace, apiVersion)
	logger := log.WithFields(log.Fields{
		"activity":   activity,
		"name":       name,
		"namespace":  namespace,
		"invocation": uuid.New().String(),
	})

	result, err := p.GetResource(ctx, name, namespace, apiVersion, configuration, secrets)
	if err != nil {
		return nil, err
	}
	if result.Status != http.StatusOK {
		logger.Errorf("unable to fetch the virtual service, status %d", result.Status)
		return nil, notFound(name, result.Body)
	}

	matches := NewRouteMatchSet(routes)

	rules, err := httpRules(name, result.Body)
	if err != nil {
		return nil, err
	}
	changed := mutate(rules, matches)
	logger.Infof("[Fault]: %d of %d http routes updated for %d target destinations", changed, len(rules), matches.Len())

	payload := map[string]interface{}{
		"apiVersion": apiVersion,
		"kind":       types.VirtualServiceKind,
		"metadata": map[string]interface{}{
			"name": name,
		},
		"spec": map[string]interface{}{
			"http": rules,
		},
	}
	result, err = p.mergePatch(ctx, virtualServicePath(name, namespace, apiVersion), payload, configuration, secrets)
	if err != nil {
		return nil, err
	}
	logger.Infof("[Fault]: patch returned status %d", result.Status)
	return result, nil
}

// httpRules returns a deep copy of spec.http
func httpRules(name string, body interface{}) ([]interface{}, error) {
	doc, ok := body.(map[string]interface{})
	if !ok {
		return nil, &ActivityFailed{Name: name, Reason: "returned an unexpected body: " + describe(body)}
	}
	rules, found, err := unstructured.NestedSlice(doc, "spec", "http")
	if err != nil || !found {
		return nil, &ActivityFailed{Name: name, Reason: "has no http routes"}
	}
	return rules, nil
}

// normalize converts a fault to plain json values so it can be deep copied
func normalize(fault types.Fault) (map[string]interface{}, error) {
	b, err := utiljson.Marshal(fault)
	if err != nil {
		return nil, errors.Wrap(err, "invalid fault")
	}
	value := map[string]interface{}{}
	if err := utiljson.Unmarshal(b, &value); err != nil {
		return nil, errors.Wrap(err, "invalid fault")
	}
	return value, nil
}

// SetFault injects fault with the default Patcher
func SetFault(ctx context.Context, name string, routes []types.Route, fault types.Fault, namespace, apiVersion string, configuration types.Configuration, secrets types.Secrets) (*types.APIResult, error) {
	return defaultPatcher.SetFault(ctx, name, routes, fault, namespace, apiVersion, configuration, secrets)
}

// UnsetFault removes faults with the default Patcher
func UnsetFault(ctx context.Context, name string, routes []types.Route, namespace, apiVersion string, configuration types.Configuration, secrets types.Secrets) (*types.APIResult, error) {
	return defaultPatcher.UnsetFault(ctx, name, routes, namespace, apiVersion, configuration, secrets)
}

// AddDelayFault adds a delay fault with the default Patcher
func AddDelayFault(ctx context.Context, name, fixedDelay string, routes []types.Route, percentage *float64, namespace, apiVersion string, configuration types.Configuration, secrets types.Secrets) (*types.APIResult, error) {
	return defaultPatcher.AddDelayFault(ctx, name, fixedDelay, routes, percentage, namespace, apiVersion, configuration, secrets)
}

// AddAbortFault adds an abort fault with the default Patcher
func AddAbortFault(ctx context.Context, name string, httpStatus int, routes []types.Route, percentage *float64, namespace, apiVersion string, configuration types.Configuration, secrets types.Secrets) (*types.APIResult, error) {
	return defaultPatcher.AddAbortFault(ctx, name, httpStatus, routes, percentage, namespace, apiVersion, configuration, secrets)
}

// RemoveDelayFault removes faults with the default Patcher
func RemoveDelayFault(ctx context.Context, name string, routes []types.Route, namespace, apiVersion string, configuration types.Configuration, secrets types.Secrets) (*types.APIResult, error) {
	return defaultPatcher.RemoveDelayFault(ctx, name, routes, namespace, apiVersion, configuration, secrets)
}

// RemoveAbortFault removes faults with the default Patcher
func RemoveAbortFault(ctx context.Context, name string, routes []types.Route, namespace, apiVersion string, configuration types.Configuration, secrets types.Secrets) (*types.APIResult, error) {
	return defaultPatcher.RemoveAbortFault(ctx, name, routes, namespace, apiVersion, configuration, secrets)
}
