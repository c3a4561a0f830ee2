package main

import "city-daily-digest/internal/cli"

func main() {
	cli.Execute()
}
