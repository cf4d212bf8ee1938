package environment

import (
	"os"
	"strconv"
	"strings"

	types "github.com/litmuschaos/chaos-istio/pkg/types"
)

// Keys looked up in the secrets first, then in the environment
const (
	KubeConfig             = "KUBECONFIG"
	KubernetesContext      = "KUBERNETES_CONTEXT"
	InPod                  = "CHAOSTOOLKIT_IN_POD"
	KubernetesHost         = "KUBERNETES_HOST"
	KubernetesVerifySSL    = "KUBERNETES_VERIFY_SSL"
	KubernetesCACertFile   = "KUBERNETES_CA_CERT_FILE"
	KubernetesAPIKey       = "KUBERNETES_API_KEY"
	KubernetesAPIKeyPrefix = "KUBERNETES_API_KEY_PREFIX"
	KubernetesCertFile     = "KUBERNETES_CERT_FILE"
	KubernetesKeyFile      = "KUBERNETES_KEY_FILE"
	KubernetesUsername     = "KUBERNETES_USERNAME"
	KubernetesPassword     = "KUBERNETES_PASSWORD"
)

// Environment is a snapshot of environment variables
type Environment map[string]string

// OSEnvironment takes a snapshot of the process environment
func OSEnvironment() Environment {
	env := Environment{}
	for _, kv := range os.Environ() {
		if i := strings.Index(kv, "="); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return env
}

// Has reports if key is set, even to an empty value
func (e Environment) Has(key string) bool {
	_, ok := e[key]
	return ok
}

// Getenv fetch the env and set the default value, if any
func (e Environment) Getenv(key string, defaultValue string) string {
	value := e[key]
	if value == "" {
		value = defaultValue
	}
	return value
}

// lookup returns the secret value, then the env value, then defaultValue
func lookup(env Environment, secrets types.Secrets, key, defaultValue string) string {
	if v, ok := secrets[key]; ok {
		return v
	}
	if v, ok := env[key]; ok {
		return v
	}
	return defaultValue
}

// present reports if key is given either as a secret or in the environment
func present(env Environment, secrets types.Secrets, key string) bool {
	if _, ok := secrets[key]; ok {
		return true
	}
	return env.Has(key)
}

// GetENV fills the activity defaults from the environment
func GetENV(details *types.FaultDetails, env Environment) {
	details.VirtualServiceName = env.Getenv("VIRTUAL_SERVICE_NAME", details.VirtualServiceName)
	details.Namespace = env.Getenv("VIRTUAL_SERVICE_NAMESPACE", types.DefaultNamespace)
	details.APIVersion = env.Getenv("VIRTUAL_SERVICE_API_VERSION", types.DefaultAPIVersion)
	details.FixedDelay = env.Getenv("FIXED_DELAY", "5s")
	details.HTTPStatus, _ = strconv.Atoi(env.Getenv("HTTP_STATUS", "503"))
	if p, err := strconv.ParseFloat(env.Getenv("FAULT_PERCENTAGE", ""), 64); err == nil {
		details.Percentage = &p
	}
}

// Getenv fetch the process env and set the default value, if any
func Getenv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	return value
}
