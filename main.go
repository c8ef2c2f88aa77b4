package main

import "equibot/cmd"

func main() {
	cmd.Execute()
}
