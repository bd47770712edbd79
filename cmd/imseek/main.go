package main

import "imseek/internal/cli"

func main() {
	cli.Execute()
}
