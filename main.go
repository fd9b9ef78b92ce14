package main

import "taskreminder/cmd"

func main() {
	cmd.Run()
}
