package main

import "github.com/grit-lang/gritql/cmd"

func main() {
	cmd.Execute()
}
