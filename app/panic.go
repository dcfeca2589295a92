package app

import (
	"fmt"
	"strings"

	"rtcore/hal"
	"rtcore/kernel"
)

func installPanicHandler(k *kernel.Kernel, l hal.Logger) {
	k.SetPanicHandler(func(info kernel.PanicInfo) {
		if l == nil {
			return
		}
		l.WriteLineString(fmt.Sprintf("rtcore panic: task=%d panic=%v", info.TaskID, info.Value))
		if len(info.Stack) == 0 {
			l.WriteLineString("stack: unavailable")
			return
		}
		for _, line := range strings.Split(string(info.Stack), "\n") {
			if line == "" {
				continue
			}
			l.WriteLineString(line)
		}
	})
}
