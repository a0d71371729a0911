package main

import "github.com/dkeye/Classroom/internal/cli"

func main() {
	cli.Execute()
}
