package main

import "github.com/frontandrew/parkpos/cmd/parkctl/command"

func main() {
	command.Execute()
}
