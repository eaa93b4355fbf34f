package main

import "github.com/accessly/lock-management/cmd"

func main() {
	cmd.Execute()
}
