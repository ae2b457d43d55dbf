package main

import "foodhub-gateway/cmd"

func main() {
	cmd.Run()
}
