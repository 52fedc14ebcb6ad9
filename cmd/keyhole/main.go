package main

import (
	"os"

	"github.com/keyhole-db/keyhole/protocol"
	"github.com/keyhole-db/keyhole/utils/logger"
	"github.com/keyhole-db/keyhole/utils/safego"
)

func main() {
	defer safego.Recovery(true)

	if err := protocol.CreateRootCommand().Execute(); err != nil {
		logger.Fatal(err)
	}

	os.Exit(0)
}
