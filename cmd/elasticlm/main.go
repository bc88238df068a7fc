package main

import "elasticlm-backend/internal/cli"

func main() {
	cli.Execute()
}
