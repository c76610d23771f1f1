package main

import (
	"github.com/walker84837/ryokan/cli/cmd"
)

func main() {
	cmd.Execute()
}
