package main

import "github.com/tartarus-sandbox/coldstart/cmd/coldstart/cmd"

func main() {
	cmd.Execute()
}
