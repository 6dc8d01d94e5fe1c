package main

import "github.com/bryanchriswhite/FrameStreamer/cmd/framestreamer/commands"

func main() {
	commands.Execute()
}
