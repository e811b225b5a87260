package main

import "github.com/brogergvhs/branchd/cmd"

func main() {
	cmd.Execute()
}
