package main

import "hightech/internal/cmd"

func main() {
	cmd.Execute()
}
