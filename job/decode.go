package job

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Decode peeks at raw["type"], applies the decode-time defaults
// (sslMode: prefer, olderThanMinutes: 5), and decodes raw into the
// matching Job variant.
func Decode(raw map[string]any) (Job, error) {
	typVal, ok := raw["type"].(string)
	if !ok || typVal == "" {
		return nil, NewValidationError("type", "missing or invalid job type")
	}

	switch Type(typVal) {
	case TypeCreateSession:
		applyCreateSessionDefaults(raw)
		var j CreateSessionJob
		if err := decodeInto(raw, &j); err != nil {
			return nil, err
		}
		return &j, nil
	case TypeRevokeSession:
		var j RevokeSessionJob
		if err := decodeInto(raw, &j); err != nil {
			return nil, err
		}
		return &j, nil
	case TypeCleanup:
		applyCleanupDefaults(raw)
		var j CleanupJob
		if err := decodeInto(raw, &j); err != nil {
			return nil, err
		}
		return &j, nil
	default:
		return nil, NewValidationError("type", fmt.Sprintf("unknown job type %q", typVal))
	}
}

func applyCreateSessionDefaults(raw map[string]any) {
	target, ok := raw["target"].(map[string]any)
	if !ok {
		return
	}
	if _, present := target["sslMode"]; !present {
		target["sslMode"] = "prefer"
	}
}

func applyCleanupDefaults(raw map[string]any) {
	if _, present := raw["olderThanMinutes"]; !present {
		raw["olderThanMinutes"] = 5
	}
}

func decodeInto(raw map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
		Squash:           true,
	})
	if err != nil {
		return fmt.Errorf("building decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return NewValidationError("", err.Error())
	}
	return nil
}
