package fault

import (
	"context"

	"github.com/litmuschaos/chaos-istio/pkg/types"
)

// GetResource fetches the VirtualService name in namespace.
// HTTP failures reported by the cluster are returned in the APIResult, not as an error.
func (p *Patcher) GetResource(ctx context.Context, name, namespace, apiVersion string, configuration types.Configuration, secrets types.Secrets) (*types.APIResult, error) {
	namespace, apiVersion = withDefaults(namespace, apiVersion)
	return p.get(ctx, virtualServicePath(name, namespace, apiVersion), configuration, secrets)
}

// GetResource fetches a VirtualService with the default Patcher
func GetResource(ctx context.Context, name, namespace, apiVersion string, configuration types.Configuration, secrets types.Secrets) (*types.APIResult, error) {
	return defaultPatcher.GetResource(ctx, name, namespace, apiVersion, configuration, secrets)
}

// GetVirtualService is the probe exposed to the orchestrator
func GetVirtualService(ctx context.Context, name, namespace, apiVersion string, configuration types.Configuration, secrets types.Secrets) (*types.APIResult, error) {
	return GetResource(ctx, name, namespace, apiVersion, configuration, secrets)
}

func withDefaults(namespace, apiVersion string) (string, string) {
	if namespace == "" {
		namespace = types.DefaultNamespace
	}
	if apiVersion == "" {
		apiVersion = types.DefaultAPIVersion
	}
	return namespace, apiVersion
}
