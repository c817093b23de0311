package main

import "github.com/vietddude/fraudlens/internal/cli"

func main() {
	cli.Execute()
}
