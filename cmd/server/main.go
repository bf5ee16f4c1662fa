package main

import "github.com/Brownie44l1/impact-api/internal/cli"

func main() {
	cli.Execute()
}
