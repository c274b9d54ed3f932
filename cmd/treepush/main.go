package main

import "github.com/aweris/treepush/cmd/treepush/cmd"

func main() {
	cmd.Execute()
}
