package main

import "github.com/mabhi256/jshim/cmd"

func main() {
	cmd.Execute()
}
