package main

import "github.com/AlexKushnir1/near-sandbox-go/internal/cli"

func main() {
	cli.Execute()
}
