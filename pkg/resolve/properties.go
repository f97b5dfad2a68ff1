package resolve

import (
	"sort"
	"strings"

	"github.com/platforge/platforge/pkg/execgroup"
	"github.com/platforge/platforge/pkg/platform"
)

// splitPropertyKey splits a possibly group-prefixed exec property key into
// its namespace prefix and bare key. Only the first dot delimits the prefix.
func splitPropertyKey(key string) (prefix, bare string, ok bool) {
	prefix, bare, ok = strings.Cut(key, ".")
	if !ok || prefix == "" || bare == "" {
		return "", key, false
	}
	return prefix, bare, true
}

// mergeSourceProperties computes one source layer's contribution to a group's
// property map: unprefixed entries apply to every group, entries prefixed
// with this group's name apply with the prefix stripped and override the
// unprefixed ones, and entries prefixed for other groups are skipped.
func mergeSourceProperties(group string, props map[string]string) map[string]string {
	out := make(map[string]string)
	for key, value := range props {
		if _, _, ok := splitPropertyKey(key); !ok {
			out[key] = value
		}
	}
	for key, value := range props {
		if prefix, bare, ok := splitPropertyKey(key); ok && prefix == group {
			out[bare] = value
		}
	}
	return out
}

// MergeExecProperties computes the final property map for one exec group.
// Layering, lowest to highest precedence: the resolved platform's properties,
// then the target's exec_properties attribute; within each layer a
// group-prefixed entry overrides an unprefixed entry of the same bare key,
// and any target-declared entry overrides the platform-declared entry it
// shadows.
func MergeExecProperties(group string, platformProps, targetProps map[string]string) map[string]string {
	merged := mergeSourceProperties(group, platformProps)
	for key, value := range mergeSourceProperties(group, targetProps) {
		merged[key] = value
	}
	return merged
}

// ValidateExecProperties checks every group-prefixed key of a target's
// exec_properties attribute against the target's declared groups. Each
// unknown prefix is reported exactly once, with a nearest-name suggestion
// when a declared group is within a small edit distance.
func ValidateExecProperties(target platform.Label, props map[string]string, index *execgroup.Index) []error {
	seen := make(map[string]bool)
	var unknown []string
	for key := range props {
		prefix, _, ok := splitPropertyKey(key)
		if !ok || index.Has(prefix) {
			continue
		}
		if !seen[prefix] {
			seen[prefix] = true
			unknown = append(unknown, prefix)
		}
	}
	sort.Strings(unknown)

	var errs []error
	for _, prefix := range unknown {
		errs = append(errs, NewMalformedPropertyNamespaceError(
			target, prefix, suggestName(prefix, index.Names())))
	}
	return errs
}

// ValidateGroupCompatibleWith checks every exec_group_compatible_with key
// against the target's declared groups, with the same suggestion policy.
func ValidateGroupCompatibleWith(target platform.Label, compat map[string][]platform.Label, index *execgroup.Index) []error {
	names := make([]string, 0, len(compat))
	for name := range compat {
		if !index.Has(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		errs = append(errs, NewUnknownExecGroupError(
			target, name, suggestName(name, index.Names())))
	}
	return errs
}
