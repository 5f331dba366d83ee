package main

import (
	"github.com/joho/godotenv"

	"github.com/devmatehq/chatsync/api/cmd/chatsync"
)

func main() {
	_ = godotenv.Load()
	chatsync.Execute()
}
