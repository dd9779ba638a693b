package main

import "github.com/KaramelBytes/cohortdash/cmd"

func main() {
	cmd.Execute()
}
