package environment

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/litmuschaos/chaos-istio/pkg/log"
	"github.com/litmuschaos/chaos-istio/pkg/types"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

const twoContextsKubeConfig = `apiVersion: v1
kind: Config
clusters:
- name: dev
  cluster:
    server: https://dev.example.com:6443
    insecure-skip-tls-verify: true
- name: prod
  cluster:
    server: https://prod.example.com:6443
    insecure-skip-tls-verify: true
users:
- name: admin
  user:
    token: abc
contexts:
- name: dev
  context:
    cluster: dev
    user: admin
- name: prod
  context:
    cluster: prod
    user: admin
current-context: dev
`

var _ = Describe("ClientFactory", func() {
	var (
		home string
		env  Environment
	)

	BeforeEach(func() {
		var err error
		home, err = ioutil.TempDir("", "chaosistio-home")
		Expect(err).NotTo(HaveOccurred())
		env = Environment{"HOME": home}
	})

	AfterEach(func() {
		os.RemoveAll(home)
	})

	writeKubeConfig := func(path string) {
		Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
		Expect(ioutil.WriteFile(path, []byte(twoContextsKubeConfig), 0o600)).To(Succeed())
	}

	Context("with a local kubeconfig file", func() {
		It("uses ~/.kube/config and its current context", func() {
			path := filepath.Join(home, ".kube", "config")
			writeKubeConfig(path)

			cfg := ResolveClientConfig(env, nil, nil)
			Expect(cfg.Source).To(Equal(SourceKubeConfigFile))
			Expect(cfg.KubeConfigPath).To(Equal(path))
			Expect(cfg.Context).To(BeEmpty())

			restConfig, err := cfg.RESTConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(restConfig.Host).To(Equal("https://dev.example.com:6443"))
			Expect(restConfig.BearerToken).To(Equal("abc"))
		})

		It("uses the KUBECONFIG path and the secret context", func() {
			path := filepath.Join(home, "custom", "kubeconfig")
			writeKubeConfig(path)
			env[KubeConfig] = path
			env[KubernetesContext] = "dev"

			cfg := ResolveClientConfig(env, nil, types.Secrets{KubernetesContext: "prod"})
			Expect(cfg.KubeConfigPath).To(Equal(path))
			Expect(cfg.Context).To(Equal("prod"))

			restConfig, err := cfg.RESTConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(restConfig.Host).To(Equal("https://prod.example.com:6443"))
		})

		It("falls back on the configuration context", func() {
			writeKubeConfig(filepath.Join(home, ".kube", "config"))

			cfg := ResolveClientConfig(env, types.Configuration{"kubernetes_context": "prod"}, nil)
			Expect(cfg.Context).To(Equal("prod"))
		})

		It("wins over every other source", func() {
			writeKubeConfig(filepath.Join(home, ".kube", "config"))
			env[InPod] = "true"
			env[KubernetesHost] = "https://other:6443"

			Expect(ResolveClientConfig(env, nil, nil).Source).To(Equal(SourceKubeConfigFile))
		})

		It("fails on an unknown context", func() {
			writeKubeConfig(filepath.Join(home, ".kube", "config"))

			_, err := ResolveClientConfig(env, nil, types.Secrets{KubernetesContext: "staging"}).RESTConfig()
			Expect(err).To(HaveOccurred())
		})
	})

	Context("inside a pod", func() {
		It("uses the service account", func() {
			env[InPod] = "true"
			env[KubernetesHost] = "https://other:6443"

			cfg := ResolveClientConfig(env, nil, nil)
			Expect(cfg.Source).To(Equal(SourceInCluster))
			Expect(cfg.Host).To(BeEmpty())
		})

		It("requires the exact true marker", func() {
			env[InPod] = "yes"
			Expect(ResolveClientConfig(env, nil, nil).Source).To(Equal(SourceExplicit))
		})
	})

	Context("with explicit values", func() {
		It("defaults to an unauthenticated loopback client", func() {
			cfg := ResolveClientConfig(env, nil, nil)
			Expect(cfg.Source).To(Equal(SourceExplicit))
			Expect(cfg.Host).To(Equal("http://localhost"))
			Expect(cfg.VerifySSL).To(BeFalse())
			Expect(cfg.Auth).To(Equal(AuthNone))

			restConfig, err := cfg.RESTConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(restConfig.Host).To(Equal("http://localhost"))
			Expect(restConfig.TLSClientConfig.Insecure).To(BeTrue())
			Expect(restConfig.BearerToken).To(BeEmpty())
			Expect(restConfig.Username).To(BeEmpty())
		})

		It("prefers secrets over the environment", func() {
			env[KubernetesHost] = "https://env:6443"
			env[KubernetesAPIKey] = "from-env"

			cfg := ResolveClientConfig(env, nil, types.Secrets{KubernetesHost: "https://secret:6443"})
			Expect(cfg.Host).To(Equal("https://secret:6443"))
			Expect(cfg.APIKey).To(Equal("from-env"))
		})

		It("picks the api key first", func() {
			env[KubernetesUsername] = "jane"
			secrets := types.Secrets{
				KubernetesAPIKey:   "token",
				KubernetesCertFile: "/tls/cert.pem",
			}

			cfg := ResolveClientConfig(env, nil, secrets)
			Expect(cfg.Auth).To(Equal(AuthAPIKey))
			Expect(cfg.APIKeyPrefix).To(Equal("Bearer"))
			Expect(cfg.CertFile).To(BeEmpty())
			Expect(cfg.Username).To(BeEmpty())

			restConfig, err := cfg.RESTConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(restConfig.BearerToken).To(Equal("token"))
		})

		It("picks the client certificate before the username", func() {
			env[KubernetesCertFile] = "/tls/cert.pem"
			env[KubernetesKeyFile] = "/tls/key.pem"
			env[KubernetesUsername] = "jane"

			cfg := ResolveClientConfig(env, nil, nil)
			Expect(cfg.Auth).To(Equal(AuthClientCert))

			restConfig, err := cfg.RESTConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(restConfig.TLSClientConfig.CertFile).To(Equal("/tls/cert.pem"))
			Expect(restConfig.TLSClientConfig.KeyFile).To(Equal("/tls/key.pem"))
			Expect(restConfig.Username).To(BeEmpty())
		})

		It("defaults the password to an empty string", func() {
			cfg := ResolveClientConfig(env, nil, types.Secrets{KubernetesUsername: "jane"})
			Expect(cfg.Auth).To(Equal(AuthBasic))
			Expect(cfg.Username).To(Equal("jane"))
			Expect(cfg.Password).To(Equal(""))
		})

		It("verifies SSL only when enabled", func() {
			env[KubernetesCACertFile] = "/tls/ca.pem"

			env[KubernetesVerifySSL] = "false"
			logged := &bytes.Buffer{}
			log.SetOutput(logged)
			restConfig, err := ResolveClientConfig(env, nil, nil).RESTConfig()
			log.SetOutput(os.Stderr)
			Expect(err).NotTo(HaveOccurred())
			Expect(restConfig.TLSClientConfig.Insecure).To(BeTrue())
			Expect(restConfig.TLSClientConfig.CAFile).To(BeEmpty())
			Expect(logged.String()).To(ContainSubstring("level=warning"))
			Expect(logged.String()).To(ContainSubstring("Ignoring KUBERNETES_CA_CERT_FILE"))

			env[KubernetesVerifySSL] = "true"
			cfg := ResolveClientConfig(env, nil, nil)
			Expect(cfg.VerifySSL).To(BeTrue())
			Expect(cfg.CACertFile).To(Equal("/tls/ca.pem"))
			restConfig, err = cfg.RESTConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(restConfig.TLSClientConfig.Insecure).To(BeFalse())
			Expect(restConfig.TLSClientConfig.CAFile).To(Equal("/tls/ca.pem"))
		})
	})

	Context("the generated clients", func() {
		var (
			server        *httptest.Server
			authorization string
		)

		BeforeEach(func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				authorization = r.Header.Get("Authorization")
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{}`))
			}))
		})

		AfterEach(func() {
			server.Close()
		})

		It("send the bearer token", func() {
			clients, err := CreateClientFromEnvironment(env, nil, types.Secrets{
				KubernetesHost:   server.URL,
				KubernetesAPIKey: "token",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(clients.KubeConfig.Host).To(Equal(server.URL))

			resp, err := clients.APIClient.R().Get("/apis")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusOK))
			Expect(authorization).To(Equal("Bearer token"))
		})

		It("send a custom api key prefix", func() {
			clients, err := CreateClientFromEnvironment(env, nil, types.Secrets{
				KubernetesHost:         server.URL,
				KubernetesAPIKey:       "token",
				KubernetesAPIKeyPrefix: "Token",
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(clients.APIKeyPrefix).To(Equal("Token"))
			Expect(clients.KubeConfig.BearerToken).To(BeEmpty())

			_, err = clients.APIClient.R().Get("/apis")
			Expect(err).NotTo(HaveOccurred())
			Expect(authorization).To(Equal("Token token"))
		})

		It("leave the bearer token to the transport", func() {
			clients, err := CreateClientFromEnvironment(env, nil, types.Secrets{
				KubernetesHost:         server.URL,
				KubernetesAPIKey:       "token",
				KubernetesAPIKeyPrefix: "bearer",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(clients.APIKey).To(BeEmpty())
			Expect(clients.KubeConfig.BearerToken).To(Equal("token"))

			_, err = clients.APIClient.R().Get("/apis")
			Expect(err).NotTo(HaveOccurred())
			Expect(authorization).To(Equal("Bearer token"))
		})
	})
})

var _ = Describe("GetENV", func() {
	It("fills the defaults", func() {
		details := types.FaultDetails{}
		GetENV(&details, Environment{})

		Expect(details.Namespace).To(Equal("default"))
		Expect(details.APIVersion).To(Equal("networking.istio.io/v1alpha3"))
		Expect(details.FixedDelay).To(Equal("5s"))
		Expect(details.HTTPStatus).To(Equal(503))
		Expect(details.Percentage).To(BeNil())
	})

	It("reads the environment", func() {
		details := types.FaultDetails{}
		GetENV(&details, Environment{
			"VIRTUAL_SERVICE_NAME":        "reviews",
			"VIRTUAL_SERVICE_NAMESPACE":   "bookinfo",
			"VIRTUAL_SERVICE_API_VERSION": "networking.istio.io/v1beta1",
			"HTTP_STATUS":                 "404",
			"FAULT_PERCENTAGE":            "12.5",
		})

		Expect(details.VirtualServiceName).To(Equal("reviews"))
		Expect(details.Namespace).To(Equal("bookinfo"))
		Expect(details.APIVersion).To(Equal("networking.istio.io/v1beta1"))
		Expect(details.HTTPStatus).To(Equal(404))
		Expect(*details.Percentage).To(Equal(12.5))
	})
})
