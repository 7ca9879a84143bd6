package main

import "github.com/inovacc/slack-mcp/cmd"

func main() {
	cmd.Execute()
}
