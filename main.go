package main

import (
	"github.com/Benso1tana/MusicMasher/cmd"
)

func main() {
	cmd.Execute()
}
