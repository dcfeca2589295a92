//go:build !tinygo && !unix

package hal

import "time"

var clockBase = time.Now()

func monotonic() time.Duration {
	return time.Since(clockBase)
}
