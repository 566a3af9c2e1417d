package main

import "fdu/cmd"

func main() {
	cmd.Execute()
}
