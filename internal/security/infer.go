package security

import (
	"encoding/json"
	"strings"

	"github.com/frannie30/ip-add-identifier/internal/snapshot"
)

// Infer normalises the raw mobile/proxy/hosting flags reported by a
// geolocation provider into tri-state values. A flag that is absent or
// cannot be interpreted stays unknown.
func Infer(flags map[string]any) snapshot.Security {
	return snapshot.Security{
		IsMobile:  Flag(flags["mobile"]),
		IsProxy:   Flag(flags["proxy"]),
		IsHosting: Flag(flags["hosting"]),
	}
}

// Flag coerces a single provider value into a tri-state boolean.
func Flag(v any) *bool {
	switch t := v.(type) {
	case nil:
		return nil
	case bool:
		return snapshot.Bool(t)
	case *bool:
		if t == nil {
			return nil
		}
		return snapshot.Bool(*t)
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1":
			return snapshot.Bool(true)
		case "false", "no", "n", "0":
			return snapshot.Bool(false)
		}
		return nil
	case float64:
		return numberFlag(t)
	case int:
		return numberFlag(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil
		}
		return numberFlag(f)
	default:
		return nil
	}
}

func numberFlag(f float64) *bool {
	switch f {
	case 1:
		return snapshot.Bool(true)
	case 0:
		return snapshot.Bool(false)
	}
	return nil
}
