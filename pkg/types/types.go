package types

const (
	// DefaultNamespace is used when no namespace is given
	DefaultNamespace = "default"
	// DefaultAPIVersion is the VirtualService api version used when none is given
	DefaultAPIVersion = "networking.istio.io/v1alpha3"
	// APIVersionV1Beta1 is the newer VirtualService api version
	APIVersionV1Beta1 = "networking.istio.io/v1beta1"
	// VirtualServiceKind is the kind sent in every patch body
	VirtualServiceKind = "VirtualService"
)

// Configuration is the free form configuration handed over by the orchestrator
type Configuration map[string]interface{}

// Secrets holds the secret values handed over by the orchestrator.
// Keys are the same as the environment variable names they override.
type Secrets map[string]string

// FaultDetails is for collecting all the activity-related details
type FaultDetails struct {
	VirtualServiceName string
	Namespace          string
	APIVersion         string
	Routes             []Route
	FixedDelay         string
	HTTPStatus         int
	Percentage         *float64
	Fault              Fault
	Configuration      Configuration
	Secrets            Secrets
}

// APIResult is returned by every activity, whatever the status returned by the cluster
type APIResult struct {
	Status  int               `json:"status"`
	Body    interface{}       `json:"body"`
	Headers map[string]string `json:"headers"`
}

// Destination identifies a traffic target of an http route
type Destination struct {
	Host string `json:"host"`
	// Subset is nil when the destination declares no subset
	Subset *string `json:"subset,omitempty"`
}

// Route is a route entry as given by the caller
type Route struct {
	Destination *Destination `json:"destination,omitempty"`
}

// Fault is the content of the fault block of an http route.
// It is inserted as is into the matching routes.
type Fault map[string]interface{}

// NewDelayFault builds a fault delaying requests by fixedDelay (e.g. "5s")
func NewDelayFault(fixedDelay string, percentage *float64) Fault {
	delay := map[string]interface{}{
		"fixedDelay": fixedDelay,
	}
	if percentage != nil {
		delay["percentage"] = map[string]interface{}{"value": *percentage}
	}
	return Fault{"delay": delay}
}

// NewAbortFault builds a fault aborting requests with the given http status
func NewAbortFault(httpStatus int, percentage *float64) Fault {
	abort := map[string]interface{}{
		"httpStatus": int64(httpStatus),
	}
	if percentage != nil {
		abort["percentage"] = map[string]interface{}{"value": *percentage}
	}
	return Fault{"abort": abort}
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

// Float64Ptr returns a pointer to f
func Float64Ptr(f float64) *float64 {
	return &f
}
