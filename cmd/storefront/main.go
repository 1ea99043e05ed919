package main

import "github.com/d60-Lab/storefront/internal/cli"

func main() {
	cli.Execute()
}
