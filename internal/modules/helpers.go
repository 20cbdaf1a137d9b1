package modules

import (
	"encoding/json"

	"github.com/go-faster/errors"
)

// ToJSON marshals any value to a JSON string.
// Module handlers use it to serialize their structured results.
func ToJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "marshal result")
	}
	return string(b), nil
}
