package main

import (
	"github.com/xkilldash9x/navsim/cmd"
)

func main() {
	cmd.Execute()
}
