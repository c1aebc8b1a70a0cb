package main

import "github.com/yhkl-dev/tunecli/cmd"

func main() {
	cmd.Execute()
}
