//go:build tinygo && baremetal

package main

import (
	"rtcore/app"
	"rtcore/hal"
)

func main() {
	h := hal.New()
	if _, err := app.New(h, app.Config{Demo: "all", TimeSlice: 5}); err != nil {
		h.Logger().WriteLineString(err.Error())
	}
	select {}
}
