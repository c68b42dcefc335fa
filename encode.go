package mappersmith

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strings"
)

// DefaultParamsSerializer encodes params using bracket notation: nested maps
// render as parent[child]=v, slices as repeated key[]=v entries, primitives
// as key=v. Keys are emitted in sorted order so the output is stable.
//
//	Params{"q": "go", "page": Params{"size": 10}, "tags": []string{"a", "b"}}
//	// => page[size]=10&q=go&tags[]=a&tags[]=b
func DefaultParamsSerializer(params Params) string {
	var pairs []string
	for _, key := range sortedKeys(params) {
		pairs = append(pairs, encodeValue(key, params[key])...)
	}
	return strings.Join(pairs, "&")
}

// CommaSerializer behaves like DefaultParamsSerializer except slices join
// into a single comma-separated value (tags=a,b).
func CommaSerializer(params Params) string {
	var pairs []string
	for _, key := range sortedKeys(params) {
		value := params[key]
		if isSlice(value) {
			var parts []string
			each(value, func(item any) {
				parts = append(parts, fmt.Sprint(item))
			})
			pairs = append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(strings.Join(parts, ",")))
			continue
		}
		pairs = append(pairs, encodeValue(key, value)...)
	}
	return strings.Join(pairs, "&")
}

func encodeValue(name string, value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case Params:
		return encodeNested(name, v)
	case map[string]any:
		return encodeNested(name, v)
	default:
		if isSlice(value) {
			var pairs []string
			each(value, func(item any) {
				pairs = append(pairs, escapePair(name+"[]", item))
			})
			return pairs
		}
		return []string{escapePair(name, value)}
	}
}

func encodeNested(name string, nested map[string]any) []string {
	var pairs []string
	for _, key := range sortedKeys(nested) {
		pairs = append(pairs, encodeValue(name+"["+key+"]", nested[key])...)
	}
	return pairs
}

func escapePair(name string, value any) string {
	escaped := url.QueryEscape(fmt.Sprint(value))
	// Brackets are legal in query strings and far more readable unescaped.
	escapedName := strings.NewReplacer("%5B", "[", "%5D", "]").Replace(url.QueryEscape(name))
	return escapedName + "=" + escaped
}

func isSlice(value any) bool {
	if value == nil {
		return false
	}
	kind := reflect.TypeOf(value).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

func each(value any, fn func(item any)) {
	v := reflect.ValueOf(value)
	for i := 0; i < v.Len(); i++ {
		fn(v.Index(i).Interface())
	}
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

var placeholderPattern = regexp.MustCompile(`:([\w-]+)`)

// expandPath substitutes :name placeholders from params and reports which
// param names were consumed. Placeholders with no matching param stay
// verbatim; the gateway surfaces the resulting invalid URL.
func expandPath(path string, params Params) (string, map[string]bool) {
	used := map[string]bool{}
	resolved := placeholderPattern.ReplaceAllStringFunc(path, func(match string) string {
		name := match[1:]
		value, ok := params[name]
		if !ok {
			return match
		}
		used[name] = true
		return url.PathEscape(fmt.Sprint(value))
	})
	return resolved, used
}
