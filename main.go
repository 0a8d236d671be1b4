package main

import "github.com/deploymenttheory/go-xtswalk/cmd"

func main() {
	cmd.Execute()
}
