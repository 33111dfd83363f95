//go:build !sonic

package syncer

import "github.com/goccy/go-json"

var jsonMarshal = func(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

var jsonUnmarshal = json.Unmarshal
