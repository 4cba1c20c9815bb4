package main

import "github.com/livp123/authguard/cmd/authguard/commands"

func main() {
	commands.Execute()
}
