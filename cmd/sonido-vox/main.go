package main

import "github.com/RyanBlaney/sonido-vox/cmd"

func main() {
	cmd.Execute()
}
