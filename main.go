package main

import "github.com/crystaldolphin/wadash/cmd"

func main() {
	cmd.Execute()
}
