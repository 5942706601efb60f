package main

import "github.com/harrisonrobin/lmsync/pkg/cli"

func main() {
	cli.Execute()
}
