package fault

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/litmuschaos/chaos-istio/pkg/environment"
	"github.com/litmuschaos/chaos-istio/pkg/types"
	"github.com/pkg/errors"
	apitypes "k8s.io/apimachinery/pkg/types"
	utiljson "k8s.io/apimachinery/pkg/util/json"
)

// ClientFactory builds the clients used by a single call
type ClientFactory func(types.Configuration, types.Secrets) (*environment.ClientSets, error)

// Patcher reads and patches VirtualServices. A new client is built for every request.
type Patcher struct {
	NewClient ClientFactory
}

// New returns a Patcher connecting with environment.CreateClient
func New() *Patcher {
	return &Patcher{NewClient: environment.CreateClient}
}

var defaultPatcher = New()

func virtualServicePath(name, namespace, apiVersion string) string {
	return fmt.Sprintf("/apis/%s/namespaces/%s/virtualservices/%s", apiVersion, namespace, name)
}

// get fetches path and returns the response as an APIResult
func (p *Patcher) get(ctx context.Context, path string, configuration types.Configuration, secrets types.Secrets) (*types.APIResult, error) {
	clients, err := p.NewClient(configuration, secrets)
	if err != nil {
		return nil, err
	}
	resp, err := clients.APIClient.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(path)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s failed", path)
	}
	return toResult(resp)
}

// mergePatch sends payload as a json merge patch to path
func (p *Patcher) mergePatch(ctx context.Context, path string, payload interface{}, configuration types.Configuration, secrets types.Secrets) (*types.APIResult, error) {
	body, err := utiljson.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "unable to encode the patch")
	}
	clients, err := p.NewClient(configuration, secrets)
	if err != nil {
		return nil, err
	}
	resp, err := clients.APIClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", string(apitypes.MergePatchType)).
		SetHeader("Accept", "application/json").
		SetBody(body).
		Patch(path)
	if err != nil {
		return nil, errors.Wrapf(err, "PATCH %s failed", path)
	}
	return toResult(resp)
}

// toResult turns any http response into an APIResult. Error bodies are decoded
// only when they are declared as json.
func toResult(resp *resty.Response) (*types.APIResult, error) {
	result := &types.APIResult{
		Status:  resp.StatusCode(),
		Headers: flattenHeaders(resp.Header()),
	}
	raw := resp.Body()

	if !resp.IsSuccess() && !isJSON(resp.Header().Get("Content-Type")) {
		result.Body = string(raw)
		return result, nil
	}
	if len(raw) == 0 {
		return result, nil
	}
	var body interface{}
	if err := utiljson.Unmarshal(raw, &body); err != nil {
		return nil, errors.Wrapf(err, "unable to decode the response body (status %d)", result.Status)
	}
	result.Body = body
	return result, nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

func flattenHeaders(header http.Header) map[string]string {
	headers := make(map[string]string, len(header))
	for k, v := range header {
		headers[k] = strings.Join(v, ", ")
	}
	return headers
}
