package main

import "github.com/hoangtv/storefront/cmd"

func main() {
	cmd.Start()
}
