//go:build sonic

package syncer

import "github.com/bytedance/sonic"

var jsonMarshal = func(v any) ([]byte, error) {
	return sonic.ConfigStd.MarshalIndent(v, "", "  ")
}

var jsonUnmarshal = sonic.ConfigStd.Unmarshal
