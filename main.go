package main

import "github.com/frahmantamala/azure-docgen/cmd"

func main() {
	cmd.Execute()
}
