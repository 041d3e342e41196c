package main

import "github.com/seltzinger/airsync/internal/cli"

func main() {
	cli.Execute()
}
