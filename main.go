package main

import "github.com/edgeflare/etlm/cmd/etlm"

func main() {
	etlm.Main()
}
