package environment

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/litmuschaos/chaos-istio/pkg/log"
	"github.com/litmuschaos/chaos-istio/pkg/types"
	"github.com/pkg/errors"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// ConfigSource tells where the connection settings were taken from
type ConfigSource string

const (
	// SourceKubeConfigFile is a local kubeconfig file
	SourceKubeConfigFile ConfigSource = "kubeconfig"
	// SourceInCluster is the service account mounted in the pod
	SourceInCluster ConfigSource = "in-cluster"
	// SourceExplicit is the set of KUBERNETES_* values
	SourceExplicit ConfigSource = "explicit"
)

// AuthStyle is the credential kind picked for explicit settings
type AuthStyle string

const (
	// AuthNone sends no credentials
	AuthNone AuthStyle = "none"
	// AuthAPIKey sends KUBERNETES_API_KEY in the Authorization header
	AuthAPIKey AuthStyle = "api-key"
	// AuthClientCert presents the KUBERNETES_CERT_FILE client certificate
	AuthClientCert AuthStyle = "client-cert"
	// AuthBasic sends KUBERNETES_USERNAME and KUBERNETES_PASSWORD
	AuthBasic AuthStyle = "basic"
)

const (
	defaultKubeConfig   = "~/.kube/config"
	defaultHost         = "http://localhost"
	defaultAPIKeyPrefix = "Bearer"
)

// ClientConfig holds the resolved connection settings
type ClientConfig struct {
	Source ConfigSource

	// kubeconfig file
	KubeConfigPath string
	Context        string

	// explicit settings
	Host         string
	VerifySSL    bool
	CACertFile   string
	Auth         AuthStyle
	APIKey       string
	APIKeyPrefix string
	CertFile     string
	KeyFile      string
	Username     string
	Password     string
}

// ClientSets is the collection of clients needed to talk to the cluster
type ClientSets struct {
	KubeConfig *rest.Config
	HTTPClient *http.Client
	APIClient  *resty.Client

	// api key sent by APIClient when its prefix is not Bearer
	APIKey       string
	APIKeyPrefix string
}

// CreateClient builds the clients from the process environment and the given secrets
func CreateClient(configuration types.Configuration, secrets types.Secrets) (*ClientSets, error) {
	return CreateClientFromEnvironment(OSEnvironment(), configuration, secrets)
}

// CreateClientFromEnvironment builds the clients from an explicit environment snapshot
func CreateClientFromEnvironment(env Environment, configuration types.Configuration, secrets types.Secrets) (*ClientSets, error) {
	cfg := ResolveClientConfig(env, configuration, secrets)
	restConfig, err := cfg.RESTConfig()
	if err != nil {
		return nil, err
	}
	clientSets := &ClientSets{}
	if cfg.Auth == AuthAPIKey && !isBearer(cfg.APIKeyPrefix) {
		clientSets.APIKey = cfg.APIKey
		clientSets.APIKeyPrefix = cfg.APIKeyPrefix
	}
	if err := clientSets.GenerateClientSetFromConfig(restConfig); err != nil {
		return nil, err
	}
	return clientSets, nil
}

// ResolveClientConfig picks the connection settings. The first source available wins:
//
//  1. a local kubeconfig file (KUBECONFIG or ~/.kube/config), using the
//     KUBERNETES_CONTEXT context when given
//  2. the pod service account when CHAOSTOOLKIT_IN_POD is "true"
//  3. the KUBERNETES_* values, secrets taking precedence over the environment
//
// Nothing is merged across sources and reachability is never checked.
func ResolveClientConfig(env Environment, configuration types.Configuration, secrets types.Secrets) *ClientConfig {
	if path, ok := localKubeConfig(env); ok {
		context := lookup(env, secrets, KubernetesContext, "")
		if context == "" {
			context = configurationString(configuration, KubernetesContext)
		}
		return &ClientConfig{
			Source:         SourceKubeConfigFile,
			KubeConfigPath: path,
			Context:        context,
		}
	}

	if env[InPod] == "true" {
		return &ClientConfig{Source: SourceInCluster}
	}

	cfg := &ClientConfig{
		Source:     SourceExplicit,
		Host:       lookup(env, secrets, KubernetesHost, defaultHost),
		VerifySSL:  isEnabled(lookup(env, secrets, KubernetesVerifySSL, "")),
		CACertFile: lookup(env, secrets, KubernetesCACertFile, ""),
		Auth:       AuthNone,
	}

	switch {
	case present(env, secrets, KubernetesAPIKey):
		cfg.Auth = AuthAPIKey
		cfg.APIKey = lookup(env, secrets, KubernetesAPIKey, "")
		cfg.APIKeyPrefix = lookup(env, secrets, KubernetesAPIKeyPrefix, defaultAPIKeyPrefix)
	case present(env, secrets, KubernetesCertFile):
		cfg.Auth = AuthClientCert
		cfg.CertFile = lookup(env, secrets, KubernetesCertFile, "")
		cfg.KeyFile = lookup(env, secrets, KubernetesKeyFile, "")
	case present(env, secrets, KubernetesUsername):
		cfg.Auth = AuthBasic
		cfg.Username = lookup(env, secrets, KubernetesUsername, "")
		cfg.Password = lookup(env, secrets, KubernetesPassword, "")
	}
	return cfg
}

// RESTConfig builds the client-go configuration
func (c *ClientConfig) RESTConfig() (*rest.Config, error) {
	switch c.Source {
	case SourceKubeConfigFile:
		log.Debugf("Using Kubernetes context: %v", contextName(c.Context))
		loadingRules := &clientcmd.ClientConfigLoadingRules{ExplicitPath: c.KubeConfigPath}
		overrides := &clientcmd.ConfigOverrides{CurrentContext: c.Context}
		config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
		if err != nil {
			return nil, errors.Wrapf(err, "unable to load kubeconfig %s", c.KubeConfigPath)
		}
		return config, nil
	case SourceInCluster:
		config, err := rest.InClusterConfig()
		if err != nil {
			return nil, errors.Wrap(err, "unable to load in-cluster configuration")
		}
		return config, nil
	}

	config := &rest.Config{Host: c.Host}
	config.TLSClientConfig.Insecure = !c.VerifySSL
	if c.CACertFile != "" {
		if c.VerifySSL {
			config.TLSClientConfig.CAFile = c.CACertFile
		} else {
			log.Warnf("Ignoring %s, SSL verification is disabled", KubernetesCACertFile)
		}
	}

	switch c.Auth {
	case AuthAPIKey:
		// other prefixes are sent by the api client, see ClientSets.APIKeyPrefix
		if isBearer(c.APIKeyPrefix) {
			config.BearerToken = c.APIKey
		}
	case AuthClientCert:
		config.TLSClientConfig.CertFile = c.CertFile
		config.TLSClientConfig.KeyFile = c.KeyFile
	case AuthBasic:
		config.Username = c.Username
		config.Password = c.Password
	}
	return config, nil
}

// GenerateClientSetFromConfig generates the http clients for the given configuration
func (clientSets *ClientSets) GenerateClientSetFromConfig(config *rest.Config) error {
	httpClient, err := rest.HTTPClientFor(config)
	if err != nil {
		return errors.Wrapf(err, "Unable to create the http client: %v", err)
	}
	server, _, err := rest.DefaultServerUrlFor(config)
	if err != nil {
		return errors.Wrapf(err, "Unable to compute the server url: %v", err)
	}

	apiClient := resty.NewWithClient(httpClient).
		SetBaseURL(strings.TrimRight(server.String(), "/"))
	if clientSets.APIKey != "" {
		apiClient = apiClient.SetAuthScheme(clientSets.APIKeyPrefix).SetAuthToken(clientSets.APIKey)
	}
	if log.IsDebug() {
		apiClient = apiClient.SetDebug(true)
	}

	clientSets.KubeConfig = config
	clientSets.HTTPClient = httpClient
	clientSets.APIClient = apiClient
	return nil
}

// localKubeConfig returns the kubeconfig path if the file exists
func localKubeConfig(env Environment) (string, bool) {
	path := env.Getenv(KubeConfig, defaultKubeConfig)
	if strings.HasPrefix(path, "~") {
		home := env["HOME"]
		if home == "" {
			home = homedir.HomeDir()
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// configurationString returns the string value of key, ignoring the key case
func configurationString(configuration types.Configuration, key string) string {
	for k, v := range configuration {
		if s, ok := v.(string); ok && strings.EqualFold(k, key) {
			return s
		}
	}
	return ""
}

func isBearer(prefix string) bool {
	return strings.EqualFold(prefix, defaultAPIKeyPrefix)
}

func isEnabled(value string) bool {
	enabled, err := strconv.ParseBool(value)
	return err == nil && enabled
}

func contextName(context string) string {
	if context == "" {
		return "default"
	}
	return context
}
