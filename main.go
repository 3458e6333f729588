// main is the entry point for the aqimport CLI.
package main

import (
	"github.com/qiotlabs/aqimport/cmd"
	"github.com/qiotlabs/aqimport/internal/contract"
	"github.com/qiotlabs/aqimport/internal/datastore"
)

func main() {
	err := cmd.Execute()
	datastore.CloseStores()
	if err != nil {
		contract.LogFatal("aqimport", err)
	}
}
