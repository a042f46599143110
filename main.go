package main

import "github.com/AmarBackInField/proPAL-AI/cmd"

func main() {
	cmd.Execute()
}
