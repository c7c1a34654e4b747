package main

import "github.com/KaramelBytes/explain-cli/cmd"

func main() {
	cmd.Execute()
}
