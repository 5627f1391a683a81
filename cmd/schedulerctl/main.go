package main

import "github.com/example/provider-scheduler/cmd"

func main() {
	cmd.Execute()
}
