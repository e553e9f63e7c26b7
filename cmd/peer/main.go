package main

import "github.com/Davy-M/chat-app/cmd/peer/cmd"

func main() {
	cmd.Execute()
}
