package main

import "clustersched/cmd"

func main() {
	cmd.Execute()
}
