// SPDX-License-Identifier: MIT
package main

import (
	"os"

	"spectro/cmd"
	applog "spectro/internal/log"
	"spectro/pkg/build"
)

func main() {
	info := build.Read()
	if err := cmd.Execute(info, os.Args[1:]); err != nil {
		applog.Fatalf("%v", err)
	}
}
