package main

import "github.com/tanq16/mediafetch/cmd"

func main() {
	cmd.Execute()
}
