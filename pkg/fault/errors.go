package fault

import (
	"fmt"

	"github.com/pkg/errors"
	utiljson "k8s.io/apimachinery/pkg/util/json"
)

// ActivityFailed is returned when an activity cannot proceed at all,
// as opposed to a cluster failure which is reported through the APIResult.
type ActivityFailed struct {
	Name   string
	Reason string
}

func (e *ActivityFailed) Error() string {
	return fmt.Sprintf("Virtual Service '%s' %s", e.Name, e.Reason)
}

// IsActivityFailed reports whether the cause of err is an ActivityFailed
func IsActivityFailed(err error) bool {
	_, ok := errors.Cause(err).(*ActivityFailed)
	return ok
}

func notFound(name string, body interface{}) *ActivityFailed {
	return &ActivityFailed{Name: name, Reason: "does not exist: " + describe(body)}
}

func describe(body interface{}) string {
	if s, ok := body.(string); ok {
		return s
	}
	b, err := utiljson.Marshal(body)
	if err != nil {
		return fmt.Sprintf("%v", body)
	}
	return string(b)
}
