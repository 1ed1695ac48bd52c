package main

import "github.com/whatchicken/slack-dm-scraper/cmd"

func main() {
	cmd.Execute()
}
