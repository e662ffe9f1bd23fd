package main

import (
	"github.com/joho/godotenv"

	"github.com/masmgr/commitrounds/cmd"
)

func main() {
	// A missing .env is not an error; the variables may come from the shell.
	_ = godotenv.Load()
	cmd.Run()
}
