package fault

import (
	"github.com/litmuschaos/chaos-istio/pkg/types"
	"k8s.io/apimachinery/pkg/runtime"
)

// destinationKey is the comparable form of a destination.
// A missing subset is never equal to a set one, even an empty one.
type destinationKey struct {
	host      string
	subset    string
	hasSubset bool
}

func keyOf(d types.Destination) destinationKey {
	k := destinationKey{host: d.Host}
	if d.Subset != nil {
		k.subset = *d.Subset
		k.hasSubset = true
	}
	return k
}

// RouteMatchSet is the set of destinations targeted by an activity
type RouteMatchSet struct {
	keys map[destinationKey]struct{}
}

// NewRouteMatchSet collects the destinations of routes. Routes without a destination are ignored.
func NewRouteMatchSet(routes []types.Route) RouteMatchSet {
	s := RouteMatchSet{keys: map[destinationKey]struct{}{}}
	for _, route := range routes {
		if route.Destination == nil {
			continue
		}
		s.keys[keyOf(*route.Destination)] = struct{}{}
	}
	return s
}

// Contains reports if d is one of the targeted destinations
func (s RouteMatchSet) Contains(d types.Destination) bool {
	_, ok := s.keys[keyOf(d)]
	return ok
}

// Len returns the number of distinct destinations
func (s RouteMatchSet) Len() int {
	return len(s.keys)
}

// ruleDestinations reads route[].destination of an http rule.
// ok is false when the rule has no route list.
func ruleDestinations(rule map[string]interface{}) (destinations []types.Destination, ok bool) {
	routes, ok := rule["route"].([]interface{})
	if !ok {
		return nil, false
	}
	for _, r := range routes {
		entry, isMap := r.(map[string]interface{})
		if !isMap {
			continue
		}
		dest, isMap := entry["destination"].(map[string]interface{})
		if !isMap {
			continue
		}
		host, isString := dest["host"].(string)
		if !isString {
			continue
		}
		d := types.Destination{Host: host}
		switch subset := dest["subset"].(type) {
		case string:
			d.Subset = types.StringPtr(subset)
		case nil:
		default:
			// not a valid subset, can't match anything
			continue
		}
		destinations = append(destinations, d)
	}
	return destinations, true
}

// matchesRule reports if any destination of the rule is targeted.
// The scan stops at the first match.
func (s RouteMatchSet) matchesRule(rule map[string]interface{}) bool {
	destinations, ok := ruleDestinations(rule)
	if !ok {
		return false
	}
	for _, d := range destinations {
		if s.Contains(d) {
			return true
		}
	}
	return false
}

// injectFault sets fault on every matching rule, replacing any previous one.
// rules is mutated in place and must be a private copy.
func injectFault(rules []interface{}, matches RouteMatchSet, fault map[string]interface{}) int {
	count := 0
	for _, r := range rules {
		rule, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		if matches.matchesRule(rule) {
			rule["fault"] = runtime.DeepCopyJSONValue(fault)
			count++
		}
	}
	return count
}

// removeFault drops the fault of every matching rule
func removeFault(rules []interface{}, matches RouteMatchSet) int {
	count := 0
	for _, r := range rules {
		rule, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		if !matches.matchesRule(rule) {
			continue
		}
		if _, has := rule["fault"]; has {
			delete(rule, "fault")
			count++
		}
	}
	return count
}
