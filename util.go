package lfsdbg

import (
	"encoding/hex"
	"log/slog"
)

func inc(data []byte) bool {
	n := len(data)
	for i := n - 1; i >= 0; i-- {
		if data[i] != 0xFF {
			data[i]++
			for j := i + 1; j < n; j++ {
				data[j] = 0
			}
			return true
		}
	}
	return false
}

func hexstr(b []byte) string {
	if b == nil {
		return "<nil>"
	}
	if len(b) == 0 {
		return "<empty>"
	}
	return hex.EncodeToString(b)
}

func hexAttr(key string, b []byte) slog.Attr {
	return slog.String(key, hexstr(b))
}
