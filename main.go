package main

import "github.com/appellisync/appellisync/cmd"

func main() {
	cmd.Execute()
}
