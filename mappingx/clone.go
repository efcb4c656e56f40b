package mappingx

import "github.com/samber/lo"

// cloneMap copies m along with every map and slice nested in it.
func cloneMap(m map[string]any) map[string]any {
	return lo.MapValues(m, func(v any, _ string) any {
		return cloneValue(v)
	})
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Settings:
		return Settings(cloneMap(t))
	case []any:
		return lo.Map(t, func(item any, _ int) any {
			return cloneValue(item)
		})
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
