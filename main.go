package main

import "github.com/jmehdipour/qmail/cmd"

func main() {
	cmd.Execute()
}
