package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Args holds arguments that passed validation against a Definition.
type Args struct {
	strings map[string]string
	numbers map[string]float64
}

func (a Args) String(name string) string {
	return a.strings[name]
}

func (a Args) Number(name string) float64 {
	return a.numbers[name]
}

// validateArgs checks raw model arguments against the definition and coerces
// them to the declared kinds. Enum values are normalized to their canonical
// spelling. The returned message is meant for the model, not for logs.
func validateArgs(def Definition, raw map[string]any) (Args, string) {
	out := Args{
		strings: make(map[string]string, len(def.Params)),
		numbers: make(map[string]float64),
	}

	for _, p := range def.Params {
		v, present := raw[p.Name]
		if !present || v == nil {
			if p.Required {
				return Args{}, fmt.Sprintf("%s is required", p.Name)
			}
			continue
		}

		switch p.Kind {
		case KindNumber:
			n, ok := toNumber(v)
			if !ok {
				return Args{}, fmt.Sprintf("%s must be a number", p.Name)
			}
			out.numbers[p.Name] = n
		default:
			s, ok := toString(v)
			if !ok {
				return Args{}, fmt.Sprintf("%s must be a string", p.Name)
			}
			s = strings.TrimSpace(s)
			if s == "" && p.Required {
				return Args{}, fmt.Sprintf("%s is required", p.Name)
			}
			if len(p.Enum) > 0 {
				canonical, ok := matchEnum(s, p.Enum)
				if !ok {
					return Args{}, fmt.Sprintf("%s must be one of %s", p.Name, strings.Join(p.Enum, ", "))
				}
				s = canonical
			}
			out.strings[p.Name] = s
		}
	}
	return out, ""
}

func toNumber(v any) (float64, bool) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func toString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func matchEnum(value string, allowed []string) (string, bool) {
	key := enumKey(value)
	for _, a := range allowed {
		if enumKey(a) == key {
			return a, true
		}
	}
	return "", false
}

func enumKey(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}
