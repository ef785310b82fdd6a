package main

import "github.com/MeKo-Tech/imread/cmd/imread/cmd"

func main() {
	cmd.Execute()
}
