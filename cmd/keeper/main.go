package main

import "github.com/vietddude/rngkeeper/internal/cli"

func main() {
	cli.Execute()
}
