package adapter

import (
	"bytes"
	"encoding/json"
)

// extractRef normalizes the identifier out of a remote acknowledgement.
// The collaborating services are not consistent about the key they use (and
// about whether the value is a string or a number), so the first
// present key wins and numbers are rendered verbatim. A numeric zero is
// the services' "no identifier" placeholder and is skipped like an
// empty string. An empty result means the reply carried no usable
// reference.
func extractRef(body []byte, keys ...string) string {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return ""
	}
	for _, key := range keys {
		switch v := payload[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			if v.String() != "0" {
				return v.String()
			}
		}
	}
	return ""
}
