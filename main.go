package main

import "github.com/kozaktomas/facial-recognition/cmd"

func main() {
	cmd.Execute()
}
