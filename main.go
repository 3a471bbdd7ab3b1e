package main

import "github.com/shaharia-lab/finance-notifier/cmd"

func main() {
	cmd.Execute()
}
