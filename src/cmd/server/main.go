package main

import "github.com/sse-simulator/stock-trading-simulator/src/internal/cli"

func main() {
	cli.Execute()
}
